package qrcode

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SequenceDigits is the zero-padded width of the numeric suffix.
	SequenceDigits = 6
	// MaxSequence is the largest suffix a prefix can carry.
	MaxSequence = 999999
)

// Code is a generated QR identifier.
type Code struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	IsUsed    bool       `json:"is_used"`
	CreatedBy *int64     `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UsedBy    *int64     `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// Stats summarises the code pool.
type Stats struct {
	Total  int `json:"total"`
	Used   int `json:"used"`
	Unused int `json:"unused"`
}

// ListFilter narrows code listings.
type ListFilter struct {
	Used     *bool
	Search   string
	Page     int
	PageSize int
}

// Format renders the identifier for sequence n.
func Format(prefix string, n int) string {
	return fmt.Sprintf("%s%0*d", prefix, SequenceDigits, n)
}

// ParseSequence extracts the numeric suffix of code. It fails for codes of another prefix or width.
func ParseSequence(prefix, code string) (int, error) {
	suffix, ok := strings.CutPrefix(code, prefix)
	if !ok || len(suffix) != SequenceDigits {
		return 0, fmt.Errorf("qrcode: %q is not a %s code", code, prefix)
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("qrcode: %q has a non-numeric suffix", code)
	}
	return n, nil
}

// Sequence returns count identifiers following latest, which may be empty.
func Sequence(prefix, latest string, count int) ([]string, error) {
	start := 1
	if latest != "" {
		n, err := ParseSequence(prefix, latest)
		if err != nil {
			return nil, err
		}
		start = n + 1
	}
	if start+count-1 > MaxSequence {
		return nil, fmt.Errorf("qrcode: prefix %s exhausted, %d codes requested after %q", prefix, count, latest)
	}
	codes := make([]string, count)
	for i := range codes {
		codes[i] = Format(prefix, start+i)
	}
	return codes, nil
}
