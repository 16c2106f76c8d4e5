package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"catalog-scraper/config"
	"catalog-scraper/models"
	"catalog-scraper/utils"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

// class tokens that tell a product container apart from other bordered boxes;
// some contain ':' so they can't be expressed as a CSS class selector
var containerTokens = []string{"flex-col", "sm:flex-row", "justify-between"}

// Browser is a single headless tab positioned on the catalog view.
// It satisfies extraction.Positioner and extraction.View.
type Browser struct {
	cfg         *config.Config
	logger      *utils.Logger
	rateLimiter *rate.Limiter
	ctx         context.Context
	cancel      context.CancelFunc

	startOnce sync.Once
	startErr  error
}

// NewBrowser prepares a Chrome allocator (one browser, one tab); Chrome itself starts on first use
func NewBrowser(cfg *config.Config, logger *utils.Logger) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"), // suppress Chrome logs
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		chromedp.WindowSize(1280, 900),
	)
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Browser{
		cfg:         cfg,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Every(1500*time.Millisecond), 1),
		ctx:         ctx,
		cancel: func() {
			cancelCtx()
			cancelAlloc()
		},
	}
}

// Close shuts the browser down
func (b *Browser) Close() {
	b.cancel()
}

// start launches Chrome. The process lives as long as the context of the first
// chromedp.Run, so that call must use the tab context itself.
func (b *Browser) start() error {
	b.startOnce.Do(func() {
		if err := chromedp.Run(b.ctx); err != nil {
			b.startErr = fmt.Errorf("failed to start browser: %w", err)
		}
	})
	return b.startErr
}

// run executes actions in the tab while honouring the caller's deadline and
// cancellation; chromedp needs its own context as the parent.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := b.start(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDl context.CancelFunc
		runCtx, cancelDl = context.WithDeadline(runCtx, dl)
		defer cancelDl()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// EnsurePositioned loads the catalog, signs in when a login form is shown,
// presses the launch button and clicks through the configured navigation
// steps until items are visible.
func (b *Browser) EnsurePositioned(ctx context.Context) error {
	b.logger.Info("Loading %s ...", b.cfg.BaseURL)
	err := b.run(ctx,
		chromedp.Navigate(b.cfg.BaseURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second), // give JS time to render
	)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	if err := b.signInIfNeeded(ctx); err != nil {
		return err
	}

	if err := b.launch(ctx); err != nil {
		return err
	}

	for _, step := range b.cfg.NavSteps {
		if err := b.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		b.logger.Info("Clicking: %s", step)
		if err := b.clickText(ctx, step); err != nil {
			return err
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()
	if err := b.run(waitCtx, chromedp.WaitVisible(b.cfg.ItemSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("catalog items never became visible: %w", err)
	}

	b.logger.Info("Successfully navigated to catalog view")
	return nil
}

// launch opens LaunchPath and presses the launch button that leads into the app
func (b *Browser) launch(ctx context.Context) error {
	if b.cfg.LaunchButton == "" {
		return nil
	}

	var location string
	if err := b.run(ctx, chromedp.Location(&location)); err != nil {
		return fmt.Errorf("failed to read location: %w", err)
	}
	if !strings.Contains(location, b.cfg.LaunchPath) {
		target := strings.TrimRight(b.cfg.BaseURL, "/") + b.cfg.LaunchPath
		err := b.run(ctx,
			chromedp.Navigate(target),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", target, err)
		}
	}

	b.logger.Info("Clicking: %s", b.cfg.LaunchButton)
	if err := b.clickText(ctx, b.cfg.LaunchButton); err != nil {
		return err
	}
	// the button navigates; wait for the next page before querying it
	err := b.run(ctx,
		chromedp.Sleep(2*time.Second),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("page after %q never loaded: %w", b.cfg.LaunchButton, err)
	}
	return nil
}

// clickText waits up to CallTimeout for a visible control labelled label and clicks it
func (b *Browser) clickText(ctx context.Context, label string) error {
	pollCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	var clicked bool
	if err := b.run(pollCtx, chromedp.Poll(clickByTextScript(label), &clicked)); err != nil {
		return fmt.Errorf("could not find or click %q: %w", label, err)
	}
	return nil
}

func (b *Browser) signInIfNeeded(ctx context.Context) error {
	var hasLogin bool
	if err := b.run(ctx, chromedp.Evaluate(`!!document.querySelector('input[type="email"]')`, &hasLogin)); err != nil {
		return fmt.Errorf("login detection failed: %w", err)
	}
	if !hasLogin {
		b.logger.Debug("No login form; existing session reused")
		return nil
	}
	if b.cfg.Email == "" || b.cfg.Password == "" {
		return fmt.Errorf("login form shown but CATALOG_EMAIL/CATALOG_PASSWORD are not set")
	}

	b.logger.Info("Signing in as %s", b.cfg.Email)
	err := b.run(ctx,
		chromedp.WaitVisible(`input[type="email"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="email"]`, b.cfg.Email, chromedp.ByQuery),
		chromedp.SendKeys(`input[type="password"]`, b.cfg.Password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	var stillLogin bool
	if err := b.run(ctx, chromedp.Evaluate(`!!document.querySelector('input[type="password"]')`, &stillLogin)); err != nil {
		return fmt.Errorf("login verification failed: %w", err)
	}
	if stillLogin {
		return fmt.Errorf("authentication failed: login form still shown")
	}
	return nil
}

// ItemCount returns how many product containers are rendered
func (b *Browser) ItemCount(ctx context.Context) (int, error) {
	var count int
	if err := b.run(ctx, chromedp.Evaluate(containerScript(b.cfg.ItemSelector, ".length"), &count)); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// ReadItems returns the outer HTML of every rendered product container
func (b *Browser) ReadItems(ctx context.Context) ([]models.RawItem, error) {
	var html []string
	if err := b.run(ctx, chromedp.Evaluate(containerScript(b.cfg.ItemSelector, ".map(el => el.outerHTML)"), &html)); err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	items := make([]models.RawItem, 0, len(html))
	for _, h := range html {
		items = append(items, models.RawItem{HTML: h})
	}
	return items, nil
}

// Scroll moves to the bottom of the page so the next slice renders
func (b *Browser) Scroll(ctx context.Context) error {
	var ok bool
	js := `(() => { window.scrollTo(0, document.body.scrollHeight); return true; })()`
	if err := b.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// containerScript selects product containers and applies suffix to the array
func containerScript(selector, suffix string) string {
	sel, _ := json.Marshal(selector)
	tokens, _ := json.Marshal(containerTokens)
	return fmt.Sprintf(`(() => {
		const tokens = %s;
		return Array.from(document.querySelectorAll(%s)).filter(el => {
			const cls = (typeof el.className === 'string') ? el.className : '';
			return tokens.every(t => cls.split(/\s+/).includes(t));
		})%s;
	})()`, tokens, sel, suffix)
}

// clickByTextScript clicks the first visible button/link whose text matches label
func clickByTextScript(label string) string {
	want, _ := json.Marshal(strings.TrimSpace(label))
	return fmt.Sprintf(`(() => {
		const want = %s;
		const els = Array.from(document.querySelectorAll('button, a, [role="button"]'));
		const el = els.find(e => e.offsetParent !== null && (e.innerText || '').trim() === want);
		if (!el) return false;
		el.click();
		return true;
	})()`, want)
}
