package templates

import "strings"

// legacyCategories maps category spellings used by the old spreadsheet import
// to the canonical names stored in product_templates.
var legacyCategories = map[string]string{
	"sofa":        "Sofa",
	"sofa set":    "Sofa",
	"sofabed":     "Sofa Bed",
	"sofa bed":    "Sofa Bed",
	"springbed":   "Spring Bed",
	"spring bed":  "Spring Bed",
	"kasur":       "Spring Bed",
	"divan":       "Divan",
	"lemari":      "Lemari",
	"almari":      "Lemari",
	"meja":        "Meja",
	"meja makan":  "Meja Makan",
	"kursi":       "Kursi",
	"kursi makan": "Kursi Makan",
	"rak":         "Rak TV",
	"rak tv":      "Rak TV",
	"bufet":       "Bufet",
	"buffet":      "Bufet",
}

// NormalizeCategory trims input and maps legacy spellings to their canonical category.
// Unknown names are returned trimmed but otherwise unchanged.
func NormalizeCategory(category string) string {
	trimmed := strings.TrimSpace(category)
	key := strings.Join(strings.Fields(strings.ToLower(trimmed)), " ")
	if canonical, ok := legacyCategories[key]; ok {
		return canonical
	}
	return trimmed
}
