package extraction

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"catalog-scraper/models"
	"catalog-scraper/utils"

	"github.com/PuerkitoBio/goquery"
)

const (
	nameSelector   = "h3.font-medium"
	infoSelector   = "div.flex.items-center.text-sm.text-muted-foreground"
	detailSelector = "div.flex.flex-col.items-center"
	labelSelector  = "span.text-muted-foreground"
	valueSelector  = "span.font-medium"
)

// Extractor turns the currently rendered items into Records
type Extractor struct {
	view   View
	policy CallPolicy
	logger *utils.Logger
	now    func() time.Time
}

// NewExtractor creates an Extractor reading from view
func NewExtractor(view View, policy CallPolicy, logger *utils.Logger) *Extractor {
	return &Extractor{view: view, policy: policy, logger: logger, now: time.Now}
}

// ExtractVisible reads every rendered item and returns the ones that carry an
// identifier. Items without one are skipped and logged; missing fields are nil.
func (e *Extractor) ExtractVisible(ctx context.Context) ([]*models.Record, error) {
	var items []models.RawItem
	err := e.policy.do(ctx, "read items", e.logger, func(ctx context.Context) error {
		var err error
		items, err = e.view.ReadItems(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	extractedAt := e.now().UTC()
	records := make([]*models.Record, 0, len(items))
	skipped := 0
	for i, item := range items {
		rec, err := ParseItem(item.HTML, extractedAt)
		if err != nil {
			skipped++
			e.logger.Warn("Skipped item %d: %v", i, err)
			continue
		}
		if missing := missingFields(rec); len(missing) > 0 {
			e.logger.Debug("Record %d has missing or unparsable fields: %s", rec.ID, strings.Join(missing, ", "))
		}
		records = append(records, rec)
	}

	e.logger.Debug("Extracted %d records from %d rendered items (%d skipped)", len(records), len(items), skipped)
	return records, nil
}

// ParseItem parses one rendered item container. Only a missing or unparsable
// identifier is an error; every other field degrades to nil.
func ParseItem(html string, extractedAt time.Time) (*models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse item HTML: %w", err)
	}

	rec := &models.Record{ExtractedAt: extractedAt}
	rec.Name = textOrNil(doc.Find(nameSelector).First())

	hasID := false
	if info := doc.Find(infoSelector).First(); info.Length() > 0 {
		for _, part := range splitInfo(info.Text()) {
			if !hasID {
				if id, ok := parseID(part); ok {
					rec.ID = id
					hasID = true
					continue
				}
			}
			if rec.Category == nil && !isIDPart(part) {
				p := part
				rec.Category = &p
			}
		}
	}
	if !hasID {
		return nil, ErrNoIdentifier
	}

	doc.Find(detailSelector).Each(func(_ int, s *goquery.Selection) {
		label := normalizeLabel(s.Find(labelSelector).First().Text())
		if label == "" {
			return
		}
		value := textOrNil(s.Find(valueSelector).First())
		switch label {
		case "description":
			rec.Description = value
		case "dimensions", "size":
			rec.Dimensions = value
		case "price":
			rec.PriceRaw = value
			if value != nil {
				rec.PriceValue = parsePrice(*value)
			}
		case "updated", "last_updated":
			rec.Updated = value
		}
	})

	return rec, nil
}

// missingFields names the optional fields of rec that came out nil
func missingFields(rec *models.Record) []string {
	var missing []string
	fields := []struct {
		name  string
		isNil bool
	}{
		{"name", rec.Name == nil},
		{"category", rec.Category == nil},
		{"description", rec.Description == nil},
		{"dimensions", rec.Dimensions == nil},
		{"price_raw", rec.PriceRaw == nil},
		{"price_value", rec.PriceValue == nil},
		{"updated", rec.Updated == nil},
	}
	for _, f := range fields {
		if f.isNil {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func splitInfo(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '•' || r == '·' || r == '|'
	})
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if p := strings.TrimSpace(f); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func isIDPart(part string) bool {
	lower := strings.ToLower(part)
	return strings.HasPrefix(lower, "id:") || strings.HasPrefix(lower, "id ")
}

// parseID accepts "ID: 123" (any case) and returns 123
func parseID(part string) (int64, bool) {
	if !isIDPart(part) {
		return 0, false
	}
	raw := strings.TrimSpace(strings.TrimLeft(part[2:], ": "))
	raw = strings.TrimPrefix(raw, "#")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.TrimSuffix(label, ":")
	return strings.Join(strings.Fields(label), "_")
}

func textOrNil(s *goquery.Selection) *string {
	if s.Length() == 0 {
		return nil
	}
	t := strings.TrimSpace(s.Text())
	if t == "" {
		return nil
	}
	return &t
}
