package rank

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexKnown(t *testing.T) {
	known := []string{"C1", "C2", "C3"}

	assert.Equal(t, 0, Index("C1", known, nil))
	assert.Equal(t, 2, Index("C3", known, nil))
	assert.Equal(t, -1, Index("C9", known, nil))
}

func TestIndexFallback(t *testing.T) {
	known := []string{"low", "720p-default", "high"}
	fallback := func(label string) string {
		if strings.Contains(label, "720p") {
			return "720p-default"
		}
		return ""
	}

	assert.Equal(t, 1, Index("WEIRD 720p RIP", known, fallback))
	assert.Equal(t, -1, Index("WEIRD 480p RIP", known, fallback))
}

func TestBestPrefersEarliestKnown(t *testing.T) {
	known := []string{"C1", "C2", "C3"}

	// Candidate order must not matter, preference order must.
	assert.Equal(t, 1, Best([]string{"C3", "C1"}, known, nil))
	assert.Equal(t, 0, Best([]string{"C2", "C3"}, known, nil))
	assert.Equal(t, -1, Best([]string{"X", "Y"}, known, nil))
	assert.Equal(t, -1, Best(nil, known, nil))
}
