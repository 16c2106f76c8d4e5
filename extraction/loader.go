package extraction

import (
	"context"
	"fmt"
	"time"

	"catalog-scraper/utils"
)

// Loader triggers more content to render and reports whether it did
type Loader struct {
	view      View
	settle    time.Duration
	policy    CallPolicy
	logger    *utils.Logger
	lastCount int
}

// NewLoader creates a Loader. settle is how long to wait after each scroll
// before counting: too short ends runs early, too long wastes time.
func NewLoader(view View, settle time.Duration, policy CallPolicy, logger *utils.Logger) *Loader {
	return &Loader{view: view, settle: settle, policy: policy, logger: logger}
}

// Prime records the item count before the first trigger
func (l *Loader) Prime(ctx context.Context) error {
	count, err := l.count(ctx)
	if err != nil {
		return err
	}
	l.lastCount = count
	l.logger.Debug("Initial items rendered: %d", count)
	return nil
}

// TriggerMore scrolls, waits the settle interval and reports whether the
// visible item count changed since the previous observation.
func (l *Loader) TriggerMore(ctx context.Context) (bool, error) {
	err := l.policy.do(ctx, "scroll", l.logger, func(ctx context.Context) error {
		return l.view.Scroll(ctx)
	})
	if err != nil {
		return false, err
	}

	if err := utils.Sleep(ctx, l.settle); err != nil {
		return false, err
	}

	count, err := l.count(ctx)
	if err != nil {
		return false, err
	}

	changed := count != l.lastCount
	l.logger.Info("Current items loaded: %d", count)
	l.lastCount = count
	return changed, nil
}

// LastCount returns the most recently observed item count
func (l *Loader) LastCount() int {
	return l.lastCount
}

func (l *Loader) count(ctx context.Context) (int, error) {
	var count int
	err := l.policy.do(ctx, "count items", l.logger, func(ctx context.Context) error {
		n, err := l.view.ItemCount(ctx)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("negative item count %d", n)
		}
		count = n
		return nil
	})
	return count, err
}
