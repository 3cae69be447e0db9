package types

import (
	"strings"
	"time"
)

// QualityPriority orders video qualities from most to least desirable.
var QualityPriority = []string{"2160p", "1080p", "720p", "480p", "360p"}

// FormatPriority orders release formats from most to least desirable.
var FormatPriority = []string{"WEB-DL", "BluRay", "BRRip", "HDRip", "DVDRip", "CAMRip", "TS"}

// ProviderPriority orders terminal hosting providers. "other" is the catch-all
// and must stay last.
var ProviderPriority = []string{"utorrent", "drive.google", "mega", "mediafire", "1fichier", "uptobox", "other"}

// Defaults applied when the caller leaves criteria fields unset.
const (
	DefaultQuality  = "1080p"
	DefaultFormat   = "WEB-DL"
	DefaultLanguage = "latino"
)

// DefaultProviders returns the default preferred-provider order.
func DefaultProviders() []string {
	return []string{"utorrent", "drive.google"}
}

// Criteria holds the user's ranking preferences for candidate links.
type Criteria struct {
	Quality   string   `json:"quality"`
	Format    string   `json:"format"`
	Providers []string `json:"providers"`
	Language  string   `json:"language"`
}

// NewCriteria builds a Criteria applying defaults for unset fields.
// The provider list is never empty after construction.
func NewCriteria(quality, format string, providers []string, language string) Criteria {
	c := Criteria{
		Quality:   strings.TrimSpace(quality),
		Format:    strings.TrimSpace(format),
		Language:  strings.ToLower(strings.TrimSpace(language)),
		Providers: make([]string, 0, len(providers)),
	}
	for _, p := range providers {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			c.Providers = append(c.Providers, p)
		}
	}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields in place.
func (c *Criteria) ApplyDefaults() {
	if c.Quality == "" {
		c.Quality = DefaultQuality
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if len(c.Providers) == 0 {
		c.Providers = DefaultProviders()
	}
}

// ProviderScore maps a provider token to 100 - 10*rank when it appears in the
// preferred list, and 10 otherwise.
func (c Criteria) ProviderScore(provider string) int {
	provider = strings.ToLower(provider)
	for i, p := range c.Providers {
		if p == provider {
			return 100 - 10*i
		}
	}
	return 10
}

// MatchesLanguage reports whether the criteria language token occurs in text.
func (c Criteria) MatchesLanguage(text string) bool {
	if c.Language == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), c.Language)
}

// Fingerprint returns a stable key component for caching resolutions.
func (c Criteria) Fingerprint() string {
	return strings.Join([]string{
		strings.ToLower(c.Quality),
		strings.ToLower(c.Format),
		strings.Join(c.Providers, ","),
		c.Language,
	}, "|")
}

// RawCandidate is an unparsed link as harvested from a page.
type RawCandidate struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// LinkOption is a parsed candidate link. The score is assigned exactly once
// during ranking.
type LinkOption struct {
	URL      string `json:"url"`
	Text     string `json:"text,omitempty"`
	Provider string `json:"provider"`
	Quality  string `json:"quality,omitempty"`
	Format   string `json:"format,omitempty"`
	Score    int    `json:"score"`
}

// Metadata holds fields extracted from a URL slug. Empty means undetected.
type Metadata struct {
	Quality  string `json:"quality,omitempty"`
	Format   string `json:"format,omitempty"`
	Language string `json:"language,omitempty"`
}

// Resolution is the outcome of a successful resolve call.
type Resolution struct {
	Origin     string        `json:"origin"`
	Link       LinkOption    `json:"link"`
	Adapter    string        `json:"adapter"`
	Chain      []string      `json:"chain,omitempty"`
	Attempts   int           `json:"attempts"`
	FromCache  bool          `json:"from_cache,omitempty"`
	Elapsed    time.Duration `json:"-"`
	ResolvedAt time.Time     `json:"resolved_at"`
}
