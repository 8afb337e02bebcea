package printing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintParamsFor(t *testing.T) {
	t.Run("defaults to letter", func(t *testing.T) {
		p := printParamsFor(&RenderRequest{HTML: "<p>x</p>", Margins: DefaultMargins()})
		assert.Equal(t, LetterWidthIn, p.PaperWidth)
		assert.Equal(t, LetterHeightIn, p.PaperHeight)
		assert.Equal(t, 0.5, p.MarginBottom)
		assert.True(t, p.PrintBackground)
		assert.False(t, p.DisplayHeaderFooter)
	})

	t.Run("footer reserves a bottom margin", func(t *testing.T) {
		p := printParamsFor(&RenderRequest{HTML: "<p>x</p>", FooterHTML: "<div>1</div>", PaperWidth: 11, PaperHeight: 8.5, Landscape: true})
		assert.True(t, p.DisplayHeaderFooter)
		assert.Equal(t, minFooterMarginIn, p.MarginBottom)
		assert.Equal(t, 11.0, p.PaperWidth)
		assert.True(t, p.Landscape)
	})
}

func TestWrapDocument(t *testing.T) {
	doc := wrapDocument(&RenderRequest{HTML: "<p>hi</p>", Title: "A & B"})
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "<title>A &amp; B</title>")
	assert.Contains(t, doc, "<body><p>hi</p></body>")

	full := "<!doctype html><html><body>x</body></html>"
	assert.Equal(t, full, wrapDocument(&RenderRequest{HTML: full}))
}

func TestChromedpRenderer_RejectsEmptyHTML(t *testing.T) {
	r := NewChromedpRenderer(ChromedpConfig{RemoteURL: "ws://127.0.0.1:1"}, nil)
	defer r.Close()
	_, err := r.Render(context.Background(), &RenderRequest{HTML: "  "})
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeInvalidHTML, rerr.Code)
	assert.Equal(t, defaultChromeTimeout, r.config.Timeout)
}

type capturingRenderer struct {
	req *RenderRequest
}

func (c *capturingRenderer) Render(_ context.Context, req *RenderRequest) (*RenderResult, error) {
	c.req = req
	return &RenderResult{PDFData: []byte("%PDF-1.7")}, nil
}

func (c *capturingRenderer) Close() error { return nil }

func testEstimate() Estimate {
	return Estimate{
		Number:          "EST-2026-00042",
		IssuedAt:        time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
		CustomerName:    "Ada <Buyer>",
		CustomerEmail:   "ada@example.com",
		DeliveryAddress: "12 Oak Ln, Waco TX",
		Lines: []EstimateLine{
			{Name: "Legacy 2856", Kind: "home", Quantity: 1, UnitPrice: decimal.NewFromInt(84500), LineTotal: decimal.NewFromInt(84500)},
			{Name: "Skirting", Kind: "option", Quantity: 2, UnitPrice: decimal.NewFromInt(600), LineTotal: decimal.NewFromInt(1200)},
		},
		Subtotal:      decimal.NewFromInt(85700),
		DeliveryFee:   decimal.RequireFromString("1940.50"),
		DeliveryMiles: decimal.RequireFromString("180.1"),
		Total:         decimal.RequireFromString("87640.50"),
	}
}

func TestEstimatePrinter_HTML(t *testing.T) {
	p, err := NewEstimatePrinter(&capturingRenderer{})
	require.NoError(t, err)

	doc, err := p.HTML(testEstimate())
	require.NoError(t, err)
	assert.Contains(t, doc, "Homestead Homes")
	assert.Contains(t, doc, "Estimate EST-2026-00042")
	assert.Contains(t, doc, "March 4, 2026")
	assert.Contains(t, doc, "$84,500.00")
	assert.Contains(t, doc, "$87,640.50")
	assert.Contains(t, doc, "(180.1 mi)")
	assert.Contains(t, doc, "Ada &lt;Buyer&gt;")
	assert.NotContains(t, doc, "Phone")
}

func TestEstimatePrinter_PrintEstimate(t *testing.T) {
	r := &capturingRenderer{}
	p, err := NewEstimatePrinter(r)
	require.NoError(t, err)

	pdf, err := p.PrintEstimate(context.Background(), testEstimate())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), pdf)
	require.NotNil(t, r.req)
	assert.Equal(t, "Estimate EST-2026-00042", r.req.Title)
	assert.Contains(t, r.req.FooterHTML, "pageNumber")
}
