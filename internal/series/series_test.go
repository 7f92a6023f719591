package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogIsFixed(t *testing.T) {
	all := All()
	assert.Len(t, all, 5)

	titles := map[string]bool{}
	for _, s := range all {
		assert.False(t, titles[s.Title], "duplicate title %q", s.Title)
		titles[s.Title] = true
	}

	// Mutating the returned copy must not leak into the catalog.
	all[0].Title = "changed"
	_, ok := Find("Guest Talks")
	assert.True(t, ok)
}

func TestMatchesIgnoresCase(t *testing.T) {
	ws, ok := Find("Workshops")
	assert.True(t, ok)
	assert.True(t, Matches(ws, "workshop"))
	assert.True(t, Matches(ws, "WORKSHOP"))
	assert.False(t, Matches(ws, "Workshops"))

	s, ok := ForTag("complexity narrative")
	assert.True(t, ok)
	assert.Equal(t, "Complexity Narratives", s.Title)

	_, ok = ForTag("Panel")
	assert.False(t, ok)
}
