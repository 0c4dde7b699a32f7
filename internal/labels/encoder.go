// Package labels renders printable QR labels for a batch of code identifiers.
package labels

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Encoder turns content into a square module matrix, true meaning dark.
type Encoder interface {
	Bitmap(content string) ([][]bool, error)
}

// QREncoder encodes with skip2/go-qrcode, without the quiet zone.
type QREncoder struct {
	Level qrcode.RecoveryLevel
}

// NewQREncoder returns an encoder at medium error correction.
func NewQREncoder() QREncoder {
	return QREncoder{Level: qrcode.Medium}
}

// Bitmap implements Encoder.
func (e QREncoder) Bitmap(content string) ([][]bool, error) {
	if content == "" {
		return nil, fmt.Errorf("labels: empty content")
	}
	q, err := qrcode.New(content, e.Level)
	if err != nil {
		return nil, fmt.Errorf("labels: encode %q: %w", content, err)
	}
	q.DisableBorder = true
	return q.Bitmap(), nil
}

// rotate90 rotates a module matrix a quarter turn clockwise.
func rotate90(in [][]bool) [][]bool {
	h := len(in)
	if h == 0 {
		return nil
	}
	w := len(in[0])
	out := make([][]bool, w)
	for i := 0; i < w; i++ {
		out[i] = make([]bool, h)
		for j := 0; j < h; j++ {
			out[i][j] = in[h-1-j][i]
		}
	}
	return out
}
