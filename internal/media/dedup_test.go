package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityIndexFallbackBuckets(t *testing.T) {
	// Unknown labels fall back to the default bucket for their resolution.
	assert.Equal(t, QualityIndex("WEB-DL 720p"), QualityIndex("SOMETHING 720p"))
	assert.Equal(t, QualityIndex("WEB-DL 1080p"), QualityIndex("CUSTOM 1080p x265"))
	assert.Equal(t, QualityIndex("4K LIGHT"), QualityIndex("REMASTER 4K"))
	assert.Equal(t, -1, QualityIndex("CAM"))
}

func TestIsBetterQuality(t *testing.T) {
	assert.True(t, IsBetterQuality("DVDRIP", "WEB-DL 1080p"))
	assert.False(t, IsBetterQuality("WEB-DL 1080p", "DVDRIP"))
	// Unknown never beats known.
	assert.False(t, IsBetterQuality("DVDRIP", "CAM"))
}

func TestDedupKeepsBestQualityPerTitle(t *testing.T) {
	results := []SearchResult{
		{Title: "Movie A", Quality: "HDRIP"},
		{Title: "Movie B", Quality: "WEB-DL 720p"},
		{Title: "Movie A", Quality: "BLU-RAY 1080p"},
		{Title: "Movie B", Quality: "DVDRIP"},
	}

	out := Dedup(results)

	assert.Len(t, out, 2)
	assert.Equal(t, "Movie A", out[0].Title)
	assert.Equal(t, "BLU-RAY 1080p", out[0].Quality)
	assert.Equal(t, "Movie B", out[1].Title)
	assert.Equal(t, "WEB-DL 720p", out[1].Quality)
}
