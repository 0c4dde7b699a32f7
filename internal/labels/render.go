package labels

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the output artifact.
type Format string

const (
	FormatZip Format = "zip"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts zip or pdf, case-insensitively. Empty means zip.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatZip:
		return FormatZip, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("labels: unsupported format %q", raw)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/zip"
}

// Filename names the artifact after the first and last code of the batch.
func Filename(codes []string, format Format) string {
	if len(codes) == 0 {
		return "QR_empty." + string(format)
	}
	return fmt.Sprintf("QR_%s-%s.%s", codes[0], codes[len(codes)-1], format)
}

// Renderer produces label artifacts. It only consumes identifiers.
type Renderer struct {
	encoder Encoder
	logger  *slog.Logger
}

// NewRenderer builds a Renderer.
func NewRenderer(encoder Encoder, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{encoder: encoder, logger: logger}
}

// Render writes one label per code to w, in the given order. A code that
// fails to encode yields a placeholder label; the batch continues.
func (r *Renderer) Render(ctx context.Context, w io.Writer, codes []string, format Format) error {
	if len(codes) == 0 {
		return fmt.Errorf("labels: no codes to render")
	}
	switch format {
	case FormatZip:
		return r.renderZip(ctx, w, codes)
	case FormatPDF:
		return r.renderPDF(ctx, w, codes)
	default:
		return fmt.Errorf("labels: unsupported format %q", format)
	}
}

func (r *Renderer) matrix(ctx context.Context, code string) ([][]bool, bool) {
	bitmap, err := r.encoder.Bitmap(code)
	if err != nil || len(bitmap) == 0 {
		r.logger.WarnContext(ctx, "label encode failed, using placeholder",
			slog.String("code", code), slog.Any("error", err))
		return nil, false
	}
	return rotate90(bitmap), true
}
