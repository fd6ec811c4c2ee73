package models

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DocxContentType is the MIME type of generated bills.
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// BillDateLayout is the wire and print format of bill dates.
const BillDateLayout = "2006-01-02"

var (
	ErrInvalidDate = errors.New("invalid bill date")
	ErrItemCount   = errors.New("item count out of bounds")
)

// BillColumns are the item table labels in print order. They double as the
// LineItem lookup keys.
var BillColumns = []string{
	"S.No.",
	"Item Name",
	"Sub Item Name",
	"Width in Sq.ft",
	"Height in Sq.ft",
	"Depth Sq.ft",
	"Total Sq.ft",
	"Price Sq.ft",
	"Per Sq.ft/Each",
	"Total Price",
}

// billFormKeys maps each column to its per-item form field prefix.
var billFormKeys = map[string]string{
	"S.No.":           "sno",
	"Item Name":       "item",
	"Sub Item Name":   "sub",
	"Width in Sq.ft":  "width",
	"Height in Sq.ft": "height",
	"Depth Sq.ft":     "depth",
	"Total Sq.ft":     "tsqft",
	"Price Sq.ft":     "pps",
	"Per Sq.ft/Each":  "per",
	"Total Price":     "tprice",
}

// LineItem is one row of the bill keyed by column label. Values are opaque text.
type LineItem map[string]string

// Value returns the cell text for a column, or "" when the key is absent.
func (li LineItem) Value(column string) string {
	return li[column]
}

// Bill is the request-scoped input of document assembly.
type Bill struct {
	CustomerName string
	BillTo       string
	BillDate     time.Time
	Items        []LineItem
}

// FormattedDate renders the bill date as printed on the document.
func (b *Bill) FormattedDate() string {
	return b.BillDate.Format(BillDateLayout)
}

// BillCreateRequest represents the JSON request to generate a bill
type BillCreateRequest struct {
	CustomerName string     `json:"customerName"`
	BillTo       string     `json:"billTo"`
	BillDate     string     `json:"billDate" binding:"required"`
	Layout       string     `json:"layout"`
	Items        []LineItem `json:"items"`
}

// Validate checks the input-collection policy. Item contents are never inspected.
func (r *BillCreateRequest) Validate(minItems, maxItems int) error {
	if n := len(r.Items); n < minItems || n > maxItems {
		return fmt.Errorf("%w: got %d, want %d..%d", ErrItemCount, n, minItems, maxItems)
	}
	if _, err := ParseBillDate(r.BillDate); err != nil {
		return err
	}
	return nil
}

// ToBill converts the request into assembler input.
func (r *BillCreateRequest) ToBill() (*Bill, error) {
	date, err := ParseBillDate(r.BillDate)
	if err != nil {
		return nil, err
	}
	items := make([]LineItem, len(r.Items))
	copy(items, r.Items)
	return &Bill{
		CustomerName: r.CustomerName,
		BillTo:       r.BillTo,
		BillDate:     date,
		Items:        items,
	}, nil
}

func ParseBillDate(raw string) (time.Time, error) {
	date, err := time.Parse(BillDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidDate, raw)
	}
	return date, nil
}

// ParseBillForm decodes the HTML bill form. Item fields are named
// "<prefix>_<index>" and item_count gives the number of rows submitted.
// Counts above maxItems are rejected before any row is read.
func ParseBillForm(values url.Values, maxItems int) (*BillCreateRequest, error) {
	count, err := strconv.Atoi(strings.TrimSpace(values.Get("item_count")))
	if err != nil {
		return nil, fmt.Errorf("%w: item_count %q is not a number", ErrItemCount, values.Get("item_count"))
	}
	if count < 0 || count > maxItems {
		return nil, fmt.Errorf("%w: item_count %d, want 0..%d", ErrItemCount, count, maxItems)
	}

	req := &BillCreateRequest{
		CustomerName: values.Get("customer_name"),
		BillTo:       values.Get("bill_to"),
		BillDate:     values.Get("bill_date"),
		Layout:       values.Get("layout"),
		Items:        make([]LineItem, 0, count),
	}
	for i := 0; i < count; i++ {
		item := make(LineItem, len(BillColumns))
		for _, column := range BillColumns {
			item[column] = values.Get(FormFieldName(column, i))
		}
		if item["S.No."] == "" {
			item["S.No."] = strconv.Itoa(i + 1)
		}
		req.Items = append(req.Items, item)
	}
	return req, nil
}

// FormFieldName returns the form input name of a column for item i.
func FormFieldName(column string, i int) string {
	return fmt.Sprintf("%s_%d", billFormKeys[column], i)
}

// BillFilename suggests a download name from the customer name. The name is
// trimmed and every inner whitespace character becomes an underscore, so runs
// are kept ("A  B" gives "A__B"). Quotes, path separators and control
// characters are dropped. An empty result falls back to the fixed name.
func BillFilename(prefix, fallback, customerName string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return '_'
		case r == '"' || r == '/' || r == '\\' || unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(customerName))
	if safe == "" {
		safe = fallback
	}
	return fmt.Sprintf("%s_%s.docx", prefix, safe)
}
