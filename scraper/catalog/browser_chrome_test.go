package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"catalog-scraper/config"
	"catalog-scraper/extraction"
	"catalog-scraper/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ extraction.Positioner = (*Browser)(nil)
	_ extraction.View       = (*Browser)(nil)
)

func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"headless-shell", "headless_shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome binary on PATH")
}

const cardJS = `
function card(id) {
  const d = document.createElement('div');
  d.className = 'flex flex-col sm:flex-row sm:items-center justify-between p-4 border rounded-md';
  d.innerHTML = '<h3 class="font-medium">Item ' + id + '</h3>' +
    '<div class="flex items-center text-sm text-muted-foreground"><span>ID: ' + id + '</span> • <span>Tools</span></div>';
  return d;
}
let next = 1;
function render(n) {
  const list = document.getElementById('list');
  for (let i = 0; i < n; i++) list.appendChild(card(next++));
}
window.addEventListener('scroll', () => render(2));
`

func catalogSite() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Welcome</p></body></html>`)
	})
	mux.HandleFunc("/instructions", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><button onclick="location.href='/challenge'">Launch Challenge</button></body></html>`)
	})
	mux.HandleFunc("/challenge", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<button onclick="render(3)">Full Catalog</button>
<div id="list"></div>
<div style="height:5000px"></div>
<script>%s</script>
</body></html>`, cardJS)
	})
	return httptest.NewServer(mux)
}

func TestBrowser_StaysUsableAcrossCalls(t *testing.T) {
	requireChrome(t)
	site := catalogSite()
	defer site.Close()

	cfg := config.Default()
	cfg.BaseURL = site.URL
	cfg.NavSteps = []string{"Full Catalog"}
	cfg.CallTimeout = 15 * time.Second

	b := NewBrowser(cfg, utils.NewNopLogger())
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	require.NoError(t, b.EnsurePositioned(ctx))

	count, err := b.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	items, err := b.ReadItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	rec, err := extraction.ParseItem(items[0].HTML, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ID)

	require.NoError(t, b.Scroll(ctx))
	assert.Eventually(t, func() bool {
		n, err := b.ItemCount(ctx)
		return err == nil && n > 3
	}, 5*time.Second, 100*time.Millisecond)
}
