package document

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"permit.pdf", "permit.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\scans\County Permit #4.pdf`, "County_Permit_4.pdf"},
		{"...", "document"},
		{"", "document"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.in))
		})
	}
}

func TestKeys(t *testing.T) {
	d, p := uuid.New(), uuid.New()
	key := PermitDocumentKey(d, p, "scan 1.pdf")
	assert.Equal(t, "permits/"+d.String()+"/"+p.String()+"/scan_1.pdf", key)
	assert.True(t, IsPermitDocumentKey(key, d, p))
	assert.False(t, IsPermitDocumentKey(key, d, uuid.New()))

	assert.Equal(t, "estimates/EST-2026-00042.pdf", EstimateKey("EST-2026-00042"))
}
