package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"go-bill-webapp/internal/config"
	"go-bill-webapp/internal/logger"
	"go-bill-webapp/internal/middleware"
	"go-bill-webapp/internal/models"
	"go-bill-webapp/internal/services"

	"github.com/gin-gonic/gin"
)

type BillHandler struct {
	docxService *services.DocxService
	billConfig  config.BillConfig
	monitor     *middleware.PerformanceMonitor
	log         *logger.StructuredLogger
}

func NewBillHandler(billConfig config.BillConfig, monitor *middleware.PerformanceMonitor, log *logger.StructuredLogger) *BillHandler {
	return &BillHandler{
		docxService: services.NewDocxService(billConfig.Layout),
		billConfig:  billConfig,
		monitor:     monitor,
		log:         log,
	}
}

type formField struct {
	Label string
	Name  string
	Value string
}

type formRow struct {
	Index  int
	Number int
	Fields []formField
}

// NewBillForm displays the bill form with the requested number of item rows
func (h *BillHandler) NewBillForm(c *gin.Context) {
	count := h.billConfig.DefaultItemCount
	if raw := c.Query("items"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			count = n
		}
	}
	h.renderForm(c, http.StatusOK, h.clampItemCount(count), "")
}

// GenerateBillFromForm handles the HTML form submission and returns the .docx
func (h *BillHandler) GenerateBillFromForm(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.renderForm(c, http.StatusBadRequest, h.billConfig.DefaultItemCount, "Invalid form submission")
		return
	}

	request, err := models.ParseBillForm(c.Request.PostForm, h.billConfig.MaxItems)
	if err != nil {
		h.log.WithRequestContext(c).Warn("GenerateBillFromForm: invalid form", map[string]interface{}{"error": err.Error()})
		h.renderForm(c, http.StatusBadRequest, h.billConfig.DefaultItemCount, err.Error())
		return
	}

	bill, layoutName, layout, err := h.prepareBill(request)
	if err != nil {
		h.log.WithRequestContext(c).Warn("GenerateBillFromForm: validation failed", map[string]interface{}{"error": err.Error()})
		h.renderForm(c, http.StatusBadRequest, h.clampItemCount(len(request.Items)), err.Error())
		return
	}

	h.generateAndSend(c, bill, layoutName, layout)
}

// GenerateBillAPI accepts a JSON bill and returns the .docx
func (h *BillHandler) GenerateBillAPI(c *gin.Context) {
	bill, layoutName, layout, ok := h.bindJSONBill(c)
	if !ok {
		return
	}
	h.generateAndSend(c, bill, layoutName, layout)
}

// PreviewBillAPI generates the bill and returns its text content as JSON
func (h *BillHandler) PreviewBillAPI(c *gin.Context) {
	bill, layoutName, layout, ok := h.bindJSONBill(c)
	if !ok {
		return
	}

	data, err := h.docxService.WithLayout(layout).GenerateBillDocx(bill)
	if err != nil {
		h.monitor.RecordBillFailure()
		h.log.WithRequestContext(c).Error("PreviewBillAPI: generation failed", err)
		respondError(c, http.StatusInternalServerError, "Failed to generate bill", err)
		return
	}

	text, err := services.ExtractBillText(data)
	if err != nil {
		h.log.WithRequestContext(c).Error("PreviewBillAPI: extraction failed", err)
		respondError(c, http.StatusInternalServerError, "Failed to read generated bill", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"layout":   layoutName,
		"filename": h.filename(bill),
		"document": text,
	})
}

func (h *BillHandler) bindJSONBill(c *gin.Context) (*models.Bill, string, config.LayoutConfig, bool) {
	var request models.BillCreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.log.WithRequestContext(c).Warn("bindJSONBill: invalid JSON", map[string]interface{}{"error": err.Error()})
		respondError(c, http.StatusBadRequest, "Invalid input data", err)
		return nil, "", config.LayoutConfig{}, false
	}

	bill, layoutName, layout, err := h.prepareBill(&request)
	if err != nil {
		if !isInputError(err) {
			h.log.WithRequestContext(c).Error("bindJSONBill: unexpected error", err)
			respondError(c, http.StatusInternalServerError, "Failed to prepare bill", err)
			return nil, "", config.LayoutConfig{}, false
		}
		h.log.WithRequestContext(c).Warn("bindJSONBill: validation failed", map[string]interface{}{"error": err.Error()})
		respondError(c, http.StatusBadRequest, "Validation failed", err)
		return nil, "", config.LayoutConfig{}, false
	}
	return bill, layoutName, layout, true
}

// prepareBill applies the input-collection policy and resolves the layout.
func (h *BillHandler) prepareBill(request *models.BillCreateRequest) (*models.Bill, string, config.LayoutConfig, error) {
	layoutName := h.billConfig.LayoutName
	layout := h.billConfig.Layout
	if request.Layout != "" {
		resolved, err := config.LayoutByName(request.Layout)
		if err != nil {
			return nil, "", config.LayoutConfig{}, err
		}
		layoutName, layout = request.Layout, resolved
	}

	if err := request.Validate(h.billConfig.MinItems, h.billConfig.MaxItems); err != nil {
		return nil, "", config.LayoutConfig{}, err
	}
	bill, err := request.ToBill()
	if err != nil {
		return nil, "", config.LayoutConfig{}, err
	}
	return bill, layoutName, layout, nil
}

func (h *BillHandler) generateAndSend(c *gin.Context, bill *models.Bill, layoutName string, layout config.LayoutConfig) {
	start := time.Now()
	data, err := h.docxService.WithLayout(layout).GenerateBillDocx(bill)
	if err != nil {
		h.monitor.RecordBillFailure()
		h.log.WithRequestContext(c).Error("generateAndSend: generation failed", err)
		respondError(c, http.StatusInternalServerError, "Failed to generate bill", err)
		return
	}
	h.monitor.RecordBill(layoutName)

	filename := h.filename(bill)
	h.log.LogBusinessEvent("Bill generated", "bill", "generate", map[string]interface{}{
		"request_id": logger.RequestID(c),
		"layout":     layoutName,
		"items":      len(bill.Items),
		"bytes":      len(data),
		"filename":   filename,
		"duration":   time.Since(start).String(),
	})

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, models.DocxContentType, data)
}

func (h *BillHandler) filename(bill *models.Bill) string {
	return models.BillFilename(h.billConfig.FilenamePrefix, h.billConfig.FallbackName, bill.CustomerName)
}

func (h *BillHandler) clampItemCount(n int) int {
	if n < h.billConfig.MinItems {
		return h.billConfig.MinItems
	}
	if n > h.billConfig.MaxItems {
		return h.billConfig.MaxItems
	}
	return n
}

func (h *BillHandler) renderForm(c *gin.Context, status int, count int, formError string) {
	rows := make([]formRow, 0, count)
	for i := 0; i < count; i++ {
		fields := make([]formField, 0, len(models.BillColumns))
		for _, column := range models.BillColumns {
			field := formField{Label: column, Name: models.FormFieldName(column, i)}
			if column == "S.No." {
				field.Value = strconv.Itoa(i + 1)
			}
			fields = append(fields, field)
		}
		rows = append(rows, formRow{Index: i, Number: i + 1, Fields: fields})
	}

	c.HTML(status, "bill_form.html", gin.H{
		"title":       "S. S. Enterprises Bill Generator",
		"companyName": "S. S. Enterprises",
		"itemCount":   count,
		"minItems":    h.billConfig.MinItems,
		"maxItems":    h.billConfig.MaxItems,
		"today":       time.Now().Format(models.BillDateLayout),
		"layout":      h.billConfig.LayoutName,
		"layouts":     []string{config.LayoutEnhanced, config.LayoutSimple},
		"rows":        rows,
		"error":       formError,
	})
}

// isInputError reports whether err was caused by the caller's input.
func isInputError(err error) bool {
	return errors.Is(err, models.ErrInvalidDate) ||
		errors.Is(err, models.ErrItemCount) ||
		errors.Is(err, config.ErrUnknownLayout)
}
