package netwatch

import (
	"strings"

	"github.com/JuanCamacho198/Neo-Link-Resolver-sub000/internal/config"
)

// Built-in dictionaries. Classification is case-insensitive substring
// containment; ad wins over download wins over shortener.
var defaultAdDomains = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"adservice.google.com",
	"amazon-adsystem.com",
	"clickadu.com",
	"popads.net",
	"propellerads.com",
	"exoclick.com",
	"adsterra.com",
	"hilltopads.net",
	"trafficjunky.com",
	"onclickads.net",
	"a-ads.com",
	"adform.net",
	"adnxs.com",
	"mgid.com",
	"google-analytics.com",
	"googletagmanager.com",
	"facebook.net",
	"outbrain.com",
	"taboola.com",
	"juicyads.com",
	"popcash.net",
	"monetag.com",
	"criteo.com",
	"pubmatic.com",
	"ad-maven.com",
	"impactify.io",
	"zedo.com",
	"adcash.com",
	"popmyads.com",
	"plugrush.com",
	"smartadserver.com",
	"bidswitch.net",
	"openx.net",
	"rubiconproject.com",
	"indexww.com",
	"mookie1.com",
	"casalemedia.com",
	"yieldmo.com",
	"teads.tv",
	"gumgum.com",
	"triplelift.com",
	"stickyadstv.com",
	"spotxchange.com",
}

var defaultDownloadDomains = []string{
	"mega.nz",
	"mega.co.nz",
	"mega.io",
	"drive.google.com",
	"docs.google.com",
	"mediafire.com",
	"1fichier.com",
	"gofile.io",
	"uptobox.com",
	"rapidgator.net",
	"dropbox.com",
	"zippyshare.com",
	"shared.com",
}

var defaultShortenerDomains = []string{
	"ouo.io",
	"ouo.press",
	"bc.vc",
	"bit.ly",
	"tinyurl.com",
	"adf.ly",
}

// Hosts that serve interactive anti-bot challenges. Landing on one means a
// human has to intervene; retrying only digs the hole deeper.
var defaultBotChallengeDomains = []string{
	"challenges.cloudflare.com",
	"geo.captcha-delivery.com",
	"captcha-delivery.com",
	"hcaptcha.com",
	"arkoselabs.com",
	"funcaptcha.com",
	"perimeterx.net",
	"px-cdn.net",
	"datadome.co",
	"sucuri.net",
}

// URLClass labels the outcome of first-match-wins classification.
type URLClass int

const (
	ClassNeutral URLClass = iota
	ClassAd
	ClassDownload
	ClassShortener
)

// Classifier answers ad/download/shortener/anti-bot membership questions for
// URLs.
type Classifier struct {
	ads           []string
	downloads     []string
	shorteners    []string
	botChallenges []string
}

// NewClassifier builds a classifier; empty lists fall back to the built-ins.
// The anti-bot dictionary always starts from the built-ins; FromConfig can
// override it.
func NewClassifier(ads, downloads, shorteners []string) *Classifier {
	cls := &Classifier{
		ads:           lowerAll(ads),
		downloads:     lowerAll(downloads),
		shorteners:    lowerAll(shorteners),
		botChallenges: defaultBotChallengeDomains,
	}
	if len(cls.ads) == 0 {
		cls.ads = defaultAdDomains
	}
	if len(cls.downloads) == 0 {
		cls.downloads = defaultDownloadDomains
	}
	if len(cls.shorteners) == 0 {
		cls.shorteners = defaultShortenerDomains
	}
	return cls
}

// FromConfig assembles a classifier from the optional JSON dictionary file
// plus any inline lists. Built-ins cover whatever remains unset.
func FromConfig(cfg config.ClassifierConfig) (*Classifier, error) {
	var ads, downloads, shorteners, botChallenges []string
	lists, err := config.LoadDomainLists(cfg.File)
	if err != nil {
		return nil, err
	}
	if lists != nil {
		ads = lists.AdDomains
		downloads = lists.DownloadDomains
		shorteners = lists.ShortenerDomains
		botChallenges = lists.BotChallengeDomains
	}
	ads = append(ads, cfg.AdDomains...)
	downloads = append(downloads, cfg.DownloadDomains...)
	shorteners = append(shorteners, cfg.ShortenerDomains...)
	botChallenges = append(botChallenges, cfg.BotChallengeDomains...)

	cls := NewClassifier(ads, downloads, shorteners)
	if cleaned := lowerAll(botChallenges); len(cleaned) > 0 {
		cls.botChallenges = cleaned
	}
	return cls, nil
}

// IsAd reports whether the URL matches an ad domain.
func (c *Classifier) IsAd(rawurl string) bool {
	return containsAny(strings.ToLower(rawurl), c.ads)
}

// IsDownload reports whether the URL matches a terminal provider domain.
// Ad URLs are never downloads.
func (c *Classifier) IsDownload(rawurl string) bool {
	lower := strings.ToLower(rawurl)
	if containsAny(lower, c.ads) {
		return false
	}
	return containsAny(lower, c.downloads)
}

// IsBotChallenge reports whether the URL sits on a known anti-bot challenge
// host.
func (c *Classifier) IsBotChallenge(rawurl string) bool {
	return containsAny(strings.ToLower(rawurl), c.botChallenges)
}

// IsShortener reports whether the URL matches a shortener domain. Ad and
// download URLs are never shorteners.
func (c *Classifier) IsShortener(rawurl string) bool {
	lower := strings.ToLower(rawurl)
	if containsAny(lower, c.ads) || containsAny(lower, c.downloads) {
		return false
	}
	return containsAny(lower, c.shorteners)
}

// Classify applies first-match-wins ordering: ad, download, shortener.
func (c *Classifier) Classify(rawurl string) URLClass {
	lower := strings.ToLower(rawurl)
	switch {
	case containsAny(lower, c.ads):
		return ClassAd
	case containsAny(lower, c.downloads):
		return ClassDownload
	case containsAny(lower, c.shorteners):
		return ClassShortener
	default:
		return ClassNeutral
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
