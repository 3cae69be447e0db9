package match

import (
	"testing"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

func defaultCriteria() types.Criteria {
	return types.NewCriteria("1080p", "WEB-DL", []string{"utorrent", "drive.google"}, "latino")
}

func TestRankPrefersCriteriaMatches(t *testing.T) {
	candidates := []types.RawCandidate{
		{URL: "magnet:?xt=urn:btih:abcdef", Text: "uTorrent 1080p WEB-DL Latino"},
		{URL: "https://mega.nz/file/abc", Text: "MEGA 720p BluRay"},
		{URL: "https://drive.google.com/file/d/X", Text: "Drive 1080p WEB-DL Latino"},
	}
	ranked := Rank(candidates, defaultCriteria())
	if len(ranked) != 3 {
		t.Fatalf("expected 3 options, got %d", len(ranked))
	}
	if ranked[0].Provider != "utorrent" {
		t.Fatalf("expected magnet candidate first, got %+v", ranked[0])
	}
	if ranked[1].Provider != "drive.google" {
		t.Fatalf("expected drive candidate second on score tie, got %+v", ranked[1])
	}
	if ranked[2].Provider != "mega" {
		t.Fatalf("expected mega candidate last, got %+v", ranked[2])
	}
	if ranked[0].Score != 100 || ranked[1].Score != 100 {
		t.Fatalf("expected capped scores 100/100, got %d/%d", ranked[0].Score, ranked[1].Score)
	}
	if ranked[2].Score != 0 {
		t.Fatalf("expected mega candidate floored at 0, got %d", ranked[2].Score)
	}
}

func TestRankScoreBounds(t *testing.T) {
	candidates := []types.RawCandidate{
		{URL: "https://mega.nz/file/low", Text: "MEGA 360p CAMRip"},
		{URL: "magnet:?xt=urn:btih:top", Text: "uTorrent 1080p WEB-DL Latino"},
		{URL: "https://example.com/x", Text: "sin datos"},
	}
	for _, opt := range Rank(candidates, defaultCriteria()) {
		if opt.Score < 0 || opt.Score > 100 {
			t.Fatalf("score %d for %s out of bounds", opt.Score, opt.URL)
		}
	}
}

func TestRankStableOnTies(t *testing.T) {
	// Identical candidates except for the URL: equal scores must preserve
	// insertion order.
	candidates := []types.RawCandidate{
		{URL: "https://mega.nz/file/a", Text: "MEGA 1080p WEB-DL Latino"},
		{URL: "https://mega.nz/file/b", Text: "MEGA 1080p WEB-DL Latino"},
		{URL: "https://mega.nz/file/c", Text: "MEGA 1080p WEB-DL Latino"},
	}
	ranked := Rank(candidates, defaultCriteria())
	want := []string{"https://mega.nz/file/a", "https://mega.nz/file/b", "https://mega.nz/file/c"}
	for i, opt := range ranked {
		if opt.URL != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], opt.URL)
		}
	}
}

func TestRankIsIdempotent(t *testing.T) {
	candidates := []types.RawCandidate{
		{URL: "https://drive.google.com/file/d/X", Text: "Drive 1080p WEB-DL Latino"},
		{URL: "https://mega.nz/file/abc", Text: "MEGA 720p BluRay"},
		{URL: "https://www.mediafire.com/file/z", Text: "MediaFire 480p DVDRip"},
	}
	criteria := defaultCriteria()
	first := Rank(candidates, criteria)

	rewound := make([]types.RawCandidate, 0, len(first))
	for _, opt := range first {
		rewound = append(rewound, types.RawCandidate{URL: opt.URL, Text: opt.Text})
	}
	second := Rank(rewound, criteria)

	if len(first) != len(second) {
		t.Fatalf("length changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("position %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRankEmptyInput(t *testing.T) {
	ranked := Rank(nil, defaultCriteria())
	if ranked == nil || len(ranked) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", ranked)
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	candidates := []types.RawCandidate{
		{URL: "https://mega.nz/file/a", Text: "primero"},
		{URL: "https://mega.nz/file/a", Text: "segundo"},
		{URL: "", Text: "vacío"},
		{URL: "https://mega.nz/file/b", Text: "otro"},
	}
	out := Dedupe(candidates)
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(out))
	}
	if out[0].Text != "primero" || out[1].URL != "https://mega.nz/file/b" {
		t.Fatalf("unexpected dedupe result: %+v", out)
	}
}
