package extraction

import (
	"context"

	"catalog-scraper/models"
)

// Positioner brings the browsing context to the scrollable data view
type Positioner interface {
	EnsurePositioned(ctx context.Context) error
}

// View gives read access to the rendered items plus a way to render more
type View interface {
	ItemCount(ctx context.Context) (int, error)
	ReadItems(ctx context.Context) ([]models.RawItem, error)
	Scroll(ctx context.Context) error
}
