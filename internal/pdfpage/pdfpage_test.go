package pdfpage

import (
	"strings"
	"testing"
)

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"pdf header", []byte("%PDF-1.7\n%binary"), true},
		{"png header", []byte("\x89PNG\r\n\x1a\n"), false},
		{"empty", nil, false},
		{"header mid-file", []byte("junk%PDF-1.4"), false},
		{"truncated header", []byte("%PD"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPDF(tt.data); got != tt.want {
				t.Errorf("IsPDF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderPages_RejectsMalformedDocument(t *testing.T) {
	e := NewExtractor()

	pages, err := e.RenderPages([]byte("%PDF-1.4 this is not a real document"), 0)
	if err == nil {
		t.Fatal("expected an error for a malformed PDF")
	}
	if pages != nil {
		t.Errorf("expected no pages, got %d", len(pages))
	}
	if !strings.Contains(err.Error(), "pdfcpu") {
		t.Errorf("error should name the parser: %v", err)
	}
}
