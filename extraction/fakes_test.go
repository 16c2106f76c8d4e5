package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"catalog-scraper/models"
	"catalog-scraper/storage"
)

// itemHTML renders a product card shaped like the catalog's markup
func itemHTML(id int64, name, price string) string {
	return fmt.Sprintf(`
<div class="flex flex-col sm:flex-row sm:items-center justify-between p-4 border rounded-md">
  <div>
    <h3 class="font-medium">%s</h3>
    <div class="flex items-center text-sm text-muted-foreground">
      <span>ID: %d</span><span class="mx-2">•</span><span>Furniture</span>
    </div>
  </div>
  <div class="flex gap-4">
    <div class="flex flex-col items-center"><span class="text-muted-foreground">Description</span><span class="font-medium">Solid oak</span></div>
    <div class="flex flex-col items-center"><span class="text-muted-foreground">Dimensions</span><span class="font-medium">10x20x30 cm</span></div>
    <div class="flex flex-col items-center"><span class="text-muted-foreground">Price</span><span class="font-medium">%s</span></div>
    <div class="flex flex-col items-center"><span class="text-muted-foreground">Updated</span><span class="font-medium">2026-01-05</span></div>
  </div>
</div>`, name, id, price)
}

func items(ids ...int64) []models.RawItem {
	out := make([]models.RawItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.RawItem{HTML: itemHTML(id, fmt.Sprintf("Item %d", id), "$10.00")})
	}
	return out
}

// fakeView plays back a fixed sequence of rendered snapshots. Snapshot 0 is
// what is visible before the first scroll; each scroll advances one snapshot
// and sticks on the last one.
type fakeView struct {
	mu        sync.Mutex
	snapshots [][]models.RawItem
	pos       int
	scrolls   int

	scrollErr      error
	failScrollFrom int // scrolls numbered >= this fail (0 disables)
	readErr        error
	onScroll       func(n int)
}

func (v *fakeView) current() []models.RawItem {
	if len(v.snapshots) == 0 {
		return nil
	}
	return v.snapshots[v.pos]
}

func (v *fakeView) ItemCount(ctx context.Context) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.current()), nil
}

func (v *fakeView) ReadItems(ctx context.Context) ([]models.RawItem, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.readErr != nil {
		return nil, v.readErr
	}
	return v.current(), nil
}

func (v *fakeView) Scroll(ctx context.Context) error {
	v.mu.Lock()
	v.scrolls++
	n := v.scrolls
	hook := v.onScroll
	fail := v.scrollErr != nil && v.failScrollFrom > 0 && n >= v.failScrollFrom
	if !fail && v.pos < len(v.snapshots)-1 {
		v.pos++
	}
	v.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if fail {
		return v.scrollErr
	}
	return nil
}

type fakePositioner struct {
	err   error
	calls int
}

func (p *fakePositioner) EnsurePositioned(ctx context.Context) error {
	p.calls++
	return p.err
}

// memStore is an in-memory BatchStore keyed by batch number
type memStore struct {
	mu      sync.Mutex
	batches map[int]*models.Batch
	writes  int
	failN   int // fail this many writes before succeeding
	failAll bool
}

func newMemStore() *memStore {
	return &memStore{batches: make(map[int]*models.Batch)}
}

var errDiskFull = errors.New("disk full")

func (s *memStore) WriteBatch(ctx context.Context, b *models.Batch) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failAll || s.failN > 0 {
		if s.failN > 0 {
			s.failN--
		}
		return "", errDiskFull
	}
	s.batches[b.Metadata.BatchNumber] = b
	return fmt.Sprintf("mem://batch_%03d", b.Metadata.BatchNumber), nil
}

func (s *memStore) ReadBatches(ctx context.Context) ([]*models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Batch, 0, len(s.batches))
	for i := 1; i <= len(s.batches); i++ {
		b, ok := s.batches[i]
		if !ok {
			return nil, fmt.Errorf("gap at batch %d", i)
		}
		out = append(out, b)
	}
	return out, nil
}

type mirrorSpy struct {
	saved []int
	err   error
}

func (m *mirrorSpy) SaveBatch(ctx context.Context, b *models.Batch) error {
	m.saved = append(m.saved, b.Metadata.BatchNumber)
	return m.err
}

func (m *mirrorSpy) Close() error { return nil }

var (
	_ View                 = (*fakeView)(nil)
	_ Positioner           = (*fakePositioner)(nil)
	_ storage.BatchStore   = (*memStore)(nil)
	_ storage.RecordMirror = (*mirrorSpy)(nil)
)

func fastPolicy() CallPolicy {
	return CallPolicy{Timeout: time.Second, MaxRetries: 2, Backoff: time.Millisecond}
}

func idsOf(records []*models.Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}
