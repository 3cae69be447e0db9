package match

import (
	"sort"
	"strings"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

// Parse derives provider, quality, and format for one raw candidate. Quality
// and format are detected over the combined text and URL; the provider over
// the same combination with a magnet-scheme shortcut.
func Parse(raw types.RawCandidate) types.LinkOption {
	combined := strings.ToLower(raw.Text + " " + raw.URL)
	opt := types.LinkOption{
		URL:      raw.URL,
		Text:     raw.Text,
		Provider: detectProvider(combined, raw.URL),
	}
	meta := ExtractMetadata(combined)
	opt.Quality = meta.Quality
	opt.Format = meta.Format
	return opt
}

func detectProvider(combined, rawURL string) string {
	if strings.HasPrefix(strings.ToLower(rawURL), "magnet:") {
		return "utorrent"
	}
	for _, p := range types.ProviderPriority {
		if p == "other" {
			continue
		}
		if strings.Contains(combined, p) {
			return p
		}
	}
	return "other"
}

// Score computes the bounded preference score of an option against criteria:
// +40 exact quality (-10 mismatch), +30 exact format (-5 mismatch), up to +30
// from the provider score, +10 on a language hit. Clamped to [0,100].
func Score(opt types.LinkOption, criteria types.Criteria) int {
	score := 0
	if opt.Quality != "" {
		if strings.EqualFold(opt.Quality, criteria.Quality) {
			score += 40
		} else {
			score -= 10
		}
	}
	if opt.Format != "" {
		if strings.EqualFold(opt.Format, criteria.Format) {
			score += 30
		} else {
			score -= 5
		}
	}
	score += criteria.ProviderScore(opt.Provider) * 30 / 100
	if criteria.MatchesLanguage(opt.Text) {
		score += 10
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Rank parses and scores the candidates and sorts them by descending score.
// The sort is stable: ties keep their insertion order. An empty input yields
// an empty (non-nil) slice.
func Rank(candidates []types.RawCandidate, criteria types.Criteria) []types.LinkOption {
	options := make([]types.LinkOption, 0, len(candidates))
	for _, raw := range candidates {
		if strings.TrimSpace(raw.URL) == "" {
			continue
		}
		opt := Parse(raw)
		opt.Score = Score(opt, criteria)
		options = append(options, opt)
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Score > options[j].Score
	})
	return options
}

// Dedupe drops candidates whose URL was already seen, keeping first
// occurrences in order.
func Dedupe(candidates []types.RawCandidate) []types.RawCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]types.RawCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := strings.TrimSpace(c.URL)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
