package match

import (
	"fmt"
	"strings"
	"testing"
)

func TestExtractMetadataFromSlug(t *testing.T) {
	meta := ExtractMetadata("https://www.peliculasgd.net/bob-esponja-2025-web-dl-1080p-latino-googledrive/")
	if meta.Quality != "1080p" {
		t.Fatalf("expected quality 1080p, got %q", meta.Quality)
	}
	if meta.Format != "WEB-DL" {
		t.Fatalf("expected format WEB-DL, got %q", meta.Format)
	}
	if meta.Language != "latino" {
		t.Fatalf("expected language latino, got %q", meta.Language)
	}
}

func TestExtractMetadataNormalises4K(t *testing.T) {
	meta := ExtractMetadata("pelicula-4k-bluray-castellano")
	if meta.Quality != "2160p" {
		t.Fatalf("expected 4k to normalise to 2160p, got %q", meta.Quality)
	}
	if meta.Format != "BluRay" {
		t.Fatalf("expected format BluRay, got %q", meta.Format)
	}
	if meta.Language != "castellano" {
		t.Fatalf("expected language castellano, got %q", meta.Language)
	}
}

func TestExtractMetadataUndetected(t *testing.T) {
	meta := ExtractMetadata("https://example.com/pelicula/eragon/")
	if meta.Quality != "" || meta.Format != "" || meta.Language != "" {
		t.Fatalf("expected empty metadata, got %+v", meta)
	}
}

func TestExtractMetadataRoundTrip(t *testing.T) {
	cases := []string{
		"foo-2025-web-dl-1080p-latino-googledrive",
		"bar-brrip-720p-dual",
		"baz-2160p-bluray-castellano",
	}
	for _, slug := range cases {
		first := ExtractMetadata(slug)
		rebuilt := fmt.Sprintf("synthetic-%s-%s-%s",
			strings.ToLower(first.Quality),
			strings.ToLower(first.Format),
			strings.ToLower(first.Language),
		)
		second := ExtractMetadata(rebuilt)
		if first != second {
			t.Fatalf("slug %q: round trip mismatch: %+v vs %+v", slug, first, second)
		}
	}
}
