// Package printing renders HTML documents, such as estimates, to PDF.
package printing

import (
	"context"
	"time"
)

// Letter paper in inches
const (
	LetterWidthIn  = 8.5
	LetterHeightIn = 11.0
)

// Margins in inches
type Margins struct {
	Top, Right, Bottom, Left float64
}

// DefaultMargins is a half inch on every side
func DefaultMargins() Margins {
	return Margins{Top: 0.5, Right: 0.5, Bottom: 0.5, Left: 0.5}
}

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	HTML string
	// Title for the PDF document metadata
	Title string
	// Paper size in inches; zero means US Letter
	PaperWidth  float64
	PaperHeight float64
	Landscape   bool
	Margins     Margins
	// FooterHTML is Chrome's footer template (optional)
	FooterHTML string
	// Timeout overrides the default rendering timeout
	Timeout time.Duration
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	PDFData        []byte
	RenderDuration time.Duration
}

// PDFRenderer defines the interface for rendering HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
	ErrCodeTemplate      = "TEMPLATE_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
