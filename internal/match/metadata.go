package match

import (
	"regexp"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/pkg/types"
)

type labelledPattern struct {
	label string
	re    *regexp.Regexp
}

// Pattern tables are ordered by priority; the first hit wins per field.
var qualityPatterns = []labelledPattern{
	{"2160p", regexp.MustCompile(`(?i)\b(2160p|4k)\b`)},
	{"1080p", regexp.MustCompile(`(?i)\b1080p\b`)},
	{"720p", regexp.MustCompile(`(?i)\b720p\b`)},
	{"480p", regexp.MustCompile(`(?i)\b480p\b`)},
	{"360p", regexp.MustCompile(`(?i)\b360p\b`)},
}

var formatPatterns = []labelledPattern{
	{"WEB-DL", regexp.MustCompile(`(?i)\bweb[-. _]?dl\b`)},
	{"BluRay", regexp.MustCompile(`(?i)\b(blu[-. _]?ray|bdrip)\b`)},
	{"BRRip", regexp.MustCompile(`(?i)\bbrrip\b`)},
	{"HDRip", regexp.MustCompile(`(?i)\bhdrip\b`)},
	{"DVDRip", regexp.MustCompile(`(?i)\bdvdrip\b`)},
	{"CAMRip", regexp.MustCompile(`(?i)\b(camrip|hdcam|cam)\b`)},
	{"TS", regexp.MustCompile(`(?i)\b(ts|telesync)\b`)},
}

var languagePatterns = []labelledPattern{
	{"latino", regexp.MustCompile(`(?i)\b(latino|lat)\b`)},
	{"castellano", regexp.MustCompile(`(?i)\b(castellano|español|espanol|esp|cast)\b`)},
	{"dual", regexp.MustCompile(`(?i)\bdual\b`)},
	{"ingles", regexp.MustCompile(`(?i)\b(inglés|ingles|english|eng)\b`)},
	{"subtitulado", regexp.MustCompile(`(?i)\b(vose|subtitulado|subbed|sub)\b`)},
}

// ExtractMetadata maps a URL slug (or any text) to quality, format, and
// language. Fields left empty were not detected; the function never fails.
func ExtractMetadata(raw string) types.Metadata {
	var m types.Metadata
	for _, p := range qualityPatterns {
		if p.re.MatchString(raw) {
			m.Quality = p.label
			break
		}
	}
	for _, p := range formatPatterns {
		if p.re.MatchString(raw) {
			m.Format = p.label
			break
		}
	}
	for _, p := range languagePatterns {
		if p.re.MatchString(raw) {
			m.Language = p.label
			break
		}
	}
	return m
}
