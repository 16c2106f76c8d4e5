package models

import "time"

// RawItem is one rendered item container as read from the catalog view
type RawItem struct {
	HTML string
}

// Record is a single catalog product extracted from the rendered view.
// Pointer fields serialize as null when the underlying element was missing.
type Record struct {
	ID          int64     `json:"id"`
	Name        *string   `json:"name"`
	Category    *string   `json:"category"`
	Description *string   `json:"description"`
	Dimensions  *string   `json:"dimensions"`
	PriceRaw    *string   `json:"price_raw"` // e.g. "$1,299.00"
	PriceValue  *float64  `json:"price_value"`
	Updated     *string   `json:"updated"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// InsightReport holds computed analytics from the final dataset
type InsightReport struct {
	TotalRecords       int
	PricedRecords      int
	AveragePrice       float64
	MinPrice           float64
	MaxPrice           float64
	MostExpensive      *Record
	RecordsByCategory  map[string]int
	MissingNameRecords int
}
