package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerScript_EscapesSelector(t *testing.T) {
	js := containerScript(`div[data-x="a'b"]`, ".length")

	assert.Contains(t, js, `document.querySelectorAll("div[data-x=\"a'b\"]")`)
	assert.Contains(t, js, `["flex-col","sm:flex-row","justify-between"]`)
	assert.Contains(t, js, "}).length;")
}

func TestClickByTextScript_EscapesLabel(t *testing.T) {
	js := clickByTextScript(`  Full "Catalog"  `)
	assert.Contains(t, js, `const want = "Full \"Catalog\"";`)
	assert.Contains(t, js, "el.click();")
}
