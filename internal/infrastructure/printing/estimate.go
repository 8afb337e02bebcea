package printing

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

//go:embed templates/estimate.html
var templateFS embed.FS

// EstimateLine is one printed line
type EstimateLine struct {
	Name      string
	Kind      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Estimate is everything printed on an estimate
type Estimate struct {
	Dealership      string
	Number          string
	IssuedAt        time.Time
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	SalesRep        string
	DeliveryAddress string
	Lines           []EstimateLine
	Subtotal        decimal.Decimal
	DeliveryFee     decimal.Decimal
	DeliveryMiles   decimal.Decimal
	Total           decimal.Decimal
	Notes           string
}

// EstimatePrinter renders estimates to PDF
type EstimatePrinter struct {
	renderer PDFRenderer
	tmpl     *template.Template
}

// NewEstimatePrinter parses the embedded estimate template
func NewEstimatePrinter(renderer PDFRenderer) (*EstimatePrinter, error) {
	tmpl, err := template.New("estimate.html").Funcs(template.FuncMap{
		"money": shared.FormatUSD,
		"date":  func(t time.Time) string { return t.Format("January 2, 2006") },
	}).ParseFS(templateFS, "templates/estimate.html")
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplate, "failed to parse estimate template", err)
	}
	return &EstimatePrinter{renderer: renderer, tmpl: tmpl}, nil
}

// HTML renders the estimate document
func (p *EstimatePrinter) HTML(e Estimate) (string, error) {
	if e.Dealership == "" {
		e.Dealership = "Homestead Homes"
	}
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, e); err != nil {
		return "", NewRenderError(ErrCodeTemplate, "failed to render estimate", err)
	}
	return buf.String(), nil
}

// PrintEstimate renders e to a PDF
func (p *EstimatePrinter) PrintEstimate(ctx context.Context, e Estimate) ([]byte, error) {
	doc, err := p.HTML(e)
	if err != nil {
		return nil, err
	}
	res, err := p.renderer.Render(ctx, &RenderRequest{
		HTML:       doc,
		Title:      "Estimate " + e.Number,
		Margins:    DefaultMargins(),
		FooterHTML: `<div style="font-size:8pt;width:100%;text-align:center;color:#7b8794">` + template.HTMLEscapeString(e.Number) + ` &middot; page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`,
	})
	if err != nil {
		return nil, err
	}
	return res.PDFData, nil
}
