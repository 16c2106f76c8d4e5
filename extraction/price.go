package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

var nonNumericRegex = regexp.MustCompile(`[^0-9.\-]+`)

// parsePrice turns a display price such as "$1,299.00" into 1299.
// It returns nil when nothing numeric can be recovered.
func parsePrice(raw string) *float64 {
	cleaned := nonNumericRegex.ReplaceAllString(strings.TrimSpace(raw), "")
	if cleaned == "" {
		return nil
	}
	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &val
}
