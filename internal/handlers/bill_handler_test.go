package handlers

import (
	"encoding/json"
	"html/template"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go-bill-webapp/internal/config"
	"go-bill-webapp/internal/logger"
	"go-bill-webapp/internal/middleware"
	"go-bill-webapp/internal/models"
	"go-bill-webapp/internal/monitoring"
	"go-bill-webapp/internal/services"
	"go-bill-webapp/web"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEngine struct {
	*gin.Engine
	monitor *middleware.PerformanceMonitor
	tracker *monitoring.ErrorTracker
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	log := logger.NewNop()
	monitor := middleware.NewPerformanceMonitor(time.Second, log)
	h := NewBillHandler(cfg.Bill, monitor, log)

	tracker := monitoring.NewErrorTracker(10, time.Hour)

	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.ParseFS(web.Templates, "templates/*.html")))
	r.Use(tracker.ErrorTrackingMiddleware())
	r.Use(GlobalErrorHandler(log))
	r.NoRoute(NotFoundHandler())
	r.GET("/", h.NewBillForm)
	r.POST("/bill", h.GenerateBillFromForm)
	r.POST("/api/bill", h.GenerateBillAPI)
	r.POST("/api/bill/preview", h.PreviewBillAPI)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return &testEngine{Engine: r, monitor: monitor, tracker: tracker}
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const sampleBill = `{
	"customerName": "Rahul",
	"billTo": "Flat 12, XYZ Apts",
	"billDate": "2024-03-01",
	"items": [{"S.No.": "1", "Item Name": "Window", "Total Price": "5000"}]
}`

func TestGenerateBillAPIDownload(t *testing.T) {
	r := newTestEngine(t)

	w := postJSON(r, "/api/bill", sampleBill)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.DocxContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=S_S_Enterprises_Rahul.docx", w.Header().Get("Content-Disposition"))

	text, err := services.ExtractBillText(w.Body.Bytes())
	require.NoError(t, err)
	assert.Contains(t, text.String(), "Customer Name: Rahul")
	assert.Contains(t, text.String(), "Date: 2024-03-01")

	expected := `
# HELP billgen_bills_generated_total Bill documents generated by layout.
# TYPE billgen_bills_generated_total counter
billgen_bills_generated_total{layout="enhanced"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(r.monitor.Registry(), strings.NewReader(expected), "billgen_bills_generated_total"))
}

func TestGenerateBillAPIFallbackFilename(t *testing.T) {
	r := newTestEngine(t)

	w := postJSON(r, "/api/bill", `{"billTo":"x","billDate":"2024-03-01","items":[{}]}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "S_S_Enterprises_Bill.docx")
}

func TestGenerateBillAPIRejectsBadInput(t *testing.T) {
	r := newTestEngine(t)

	cases := map[string]string{
		"malformed json": `{"billDate":`,
		"missing date":   `{"items":[{}]}`,
		"bad date":       `{"billDate":"03/01/2024","items":[{}]}`,
		"no items":       `{"billDate":"2024-03-01","items":[]}`,
		"unknown layout": `{"billDate":"2024-03-01","layout":"fancy","items":[{}]}`,
	}
	for name, body := range cases {
		w := postJSON(r, "/api/bill", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.Contains(t, w.Body.String(), `"error"`, name)
	}
}

func TestGenerateBillAPIItemUpperBound(t *testing.T) {
	r := newTestEngine(t)

	items := make([]map[string]string, 51)
	for i := range items {
		items[i] = map[string]string{}
	}
	body, err := json.Marshal(map[string]interface{}{"billDate": "2024-03-01", "items": items})
	require.NoError(t, err)

	w := postJSON(r, "/api/bill", string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewBillAPISelectsLayout(t *testing.T) {
	r := newTestEngine(t)

	w := postJSON(r, "/api/bill/preview", `{"billTo":"Flat 12","billDate":"2024-03-01","layout":"simple","items":[{"Item Name":"Door"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Layout   string            `json:"layout"`
		Filename string            `json:"filename"`
		Document services.BillText `json:"document"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "simple", resp.Layout)
	assert.Equal(t, "S_S_Enterprises_Bill.docx", resp.Filename)
	require.Len(t, resp.Document.Tables, 1, "simple layout has no decorative rule")
	assert.Equal(t, "Door", resp.Document.ItemTable()[1][1])
	assert.NotContains(t, resp.Document.String(), services.PaymentTermsHeading)

	generated, err := testutil.GatherAndCount(r.monitor.Registry(), "billgen_bills_generated_total")
	require.NoError(t, err)
	assert.Zero(t, generated, "previews are not counted as generated bills")
}

func TestGenerateBillFromForm(t *testing.T) {
	r := newTestEngine(t)

	form := url.Values{}
	form.Set("customer_name", "Rahul Kumar")
	form.Set("bill_to", "Flat 12")
	form.Set("bill_date", "2024-03-01")
	form.Set("item_count", "2")
	form.Set("item_0", "Window")
	form.Set("tprice_0", "5000")
	form.Set("item_1", "Door")

	req := httptest.NewRequest(http.MethodPost, "/bill", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "S_S_Enterprises_Rahul_Kumar.docx")

	text, err := services.ExtractBillText(w.Body.Bytes())
	require.NoError(t, err)
	rows := text.ItemTable()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "Window", "", "", "", "", "", "", "", "5000"}, rows[1])
	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "Door", rows[2][1])
}

func TestGenerateBillFromFormRejectsOversizedCount(t *testing.T) {
	r := newTestEngine(t)

	for _, count := range []string{"51", "200000000", "4611686018427387904"} {
		form := url.Values{"bill_date": {"2024-03-01"}, "item_count": {count}}
		req := httptest.NewRequest(http.MethodPost, "/bill", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code, count)
		assert.Contains(t, w.Body.String(), "item count out of bounds", count)
	}
	assert.Empty(t, r.tracker.GetErrors(0))
}

func TestContentDispositionEscapesCustomerName(t *testing.T) {
	r := newTestEngine(t)

	w := postJSON(r, "/api/bill", `{"customerName":"Ra\"hul  K","billDate":"2024-03-01","items":[{}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	disposition, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "S_S_Enterprises_Rahul__K.docx", params["filename"])
}

func TestEmptyLayoutUsesConfiguredDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Bill.LayoutName = config.LayoutSimple
	cfg.Bill.Layout = config.SimpleLayout()
	log := logger.NewNop()
	h := NewBillHandler(cfg.Bill, middleware.NewPerformanceMonitor(time.Second, log), log)

	r := gin.New()
	r.POST("/api/bill/preview", h.PreviewBillAPI)

	w := postJSON(r, "/api/bill/preview", `{"billDate":"2024-03-01","items":[{}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Layout   string            `json:"layout"`
		Document services.BillText `json:"document"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, config.LayoutSimple, resp.Layout)
	assert.Len(t, resp.Document.Tables, 1)
}

func TestGenerateBillFromFormBadDate(t *testing.T) {
	r := newTestEngine(t)

	form := url.Values{"bill_date": {"yesterday"}, "item_count": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/bill", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid bill date")
}

func TestNewBillFormRows(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?items=3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `name="tprice_2"`)
	assert.NotContains(t, body, `name="tprice_3"`)
	assert.Contains(t, body, `name="item_count" value="3"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?items=500", nil))
	assert.Contains(t, w.Body.String(), `name="item_count" value="50"`, "count is clamped")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), `name="item_count" value="5"`)
}

func TestGlobalErrorHandlerRecoversPanics(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "An unexpected error occurred")

	tracked := r.tracker.GetErrors(0)
	require.Len(t, tracked, 1)
	assert.Equal(t, "CRITICAL", tracked[0].Severity)
	assert.Equal(t, "/panic", tracked[0].Component)
	assert.Equal(t, "panic: boom", tracked[0].Error)
}

func TestBadInputIsNotTracked(t *testing.T) {
	r := newTestEngine(t)

	w := postJSON(r, "/api/bill", `{"billDate":"nope","items":[{}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, r.tracker.GetErrors(0))
}

func TestNotFoundHandler(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"path":"/nope"`)
}
