// Package media carries the search-result deduplication used by the media
// lookup commands: identical titles collapse to the single best quality.
package media

import (
	"strings"

	"padelbot/internal/rank"
)

// qualityOrder is a total order over known quality labels, worst first.
var qualityOrder = []string{
	"DVDRIP", "HDRIP", "WEBRiP", "WEBRIP",
	"WEB-DL 720p", "WEBRIP 720p", "HDLIGHT 720p", "BLU-RAY 720p",
	"HDLIGHT 1080p", "WEB-DL 1080p", "BLU-RAY 1080p",
	"BDRIP", "BLURAY REMUX 4K", "4K LIGHT",
}

const (
	default720p  = "WEB-DL 720p"
	default1080p = "WEB-DL 1080p"
	default4K    = "4K LIGHT"
)

// SearchResult is one media index entry.
type SearchResult struct {
	ID       string
	Title    string
	URL      string
	Quality  string
	Language string
}

// classifyQuality buckets unrecognized labels by resolution substring.
func classifyQuality(label string) string {
	switch {
	case strings.Contains(label, "720p"):
		return default720p
	case strings.Contains(label, "1080p"):
		return default1080p
	case strings.Contains(label, "4K"):
		return default4K
	default:
		return ""
	}
}

// QualityIndex returns the rank of a quality label, -1 when unknown.
func QualityIndex(quality string) int {
	return rank.Index(quality, qualityOrder, classifyQuality)
}

// IsBetterQuality reports whether next ranks strictly above current.
func IsBetterQuality(current, next string) bool {
	return QualityIndex(next) > QualityIndex(current)
}

// Dedup collapses results sharing a title down to the best-quality one,
// preserving first-seen title order.
func Dedup(results []SearchResult) []SearchResult {
	byTitle := make(map[string]int)
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		i, seen := byTitle[r.Title]
		if !seen {
			byTitle[r.Title] = len(out)
			out = append(out, r)
			continue
		}
		if IsBetterQuality(out[i].Quality, r.Quality) {
			out[i] = r
		}
	}
	return out
}
