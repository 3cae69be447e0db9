package netwatch

import "testing"

func TestClassifyKnownURLs(t *testing.T) {
	cls := NewClassifier(nil, nil, nil)

	if !cls.IsAd("https://pagead2.googlesyndication.com/x") {
		t.Fatal("googlesyndication should classify as ad")
	}
	if !cls.IsDownload("https://drive.google.com/file/d/ABC/view") {
		t.Fatal("drive.google.com should classify as download")
	}
	if cls.IsAd("https://drive.google.com/file/d/ABC/view") {
		t.Fatal("drive.google.com should not classify as ad")
	}
	if !cls.IsShortener("https://ouo.io/abcd") {
		t.Fatal("ouo.io should classify as shortener")
	}
	if cls.IsDownload("https://example.com/page") || cls.IsShortener("https://example.com/page") {
		t.Fatal("neutral URL misclassified")
	}
}

func TestClassifierPredicatesAreDisjoint(t *testing.T) {
	cls := NewClassifier(nil, nil, nil)

	var urls []string
	for _, d := range defaultAdDomains {
		urls = append(urls, "https://"+d+"/x")
	}
	for _, d := range defaultDownloadDomains {
		urls = append(urls, "https://"+d+"/x")
	}
	for _, d := range defaultShortenerDomains {
		urls = append(urls, "https://"+d+"/x")
	}

	for _, u := range urls {
		if cls.IsAd(u) && cls.IsDownload(u) {
			t.Fatalf("%s is both ad and download", u)
		}
		if cls.IsDownload(u) && cls.IsShortener(u) {
			t.Fatalf("%s is both download and shortener", u)
		}
		if cls.IsAd(u) && cls.IsShortener(u) {
			t.Fatalf("%s is both ad and shortener", u)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	cls := NewClassifier(nil, nil, nil)

	// A download URL smuggled through an ad host stays an ad.
	if got := cls.Classify("https://doubleclick.net/redir?u=mega.nz"); got != ClassAd {
		t.Fatalf("expected ClassAd, got %v", got)
	}
	if got := cls.Classify("https://mega.nz/file/a"); got != ClassDownload {
		t.Fatalf("expected ClassDownload, got %v", got)
	}
	if got := cls.Classify("https://bit.ly/xyz"); got != ClassShortener {
		t.Fatalf("expected ClassShortener, got %v", got)
	}
	if got := cls.Classify("https://example.org/"); got != ClassNeutral {
		t.Fatalf("expected ClassNeutral, got %v", got)
	}
}

func TestClassifierBotChallengeHosts(t *testing.T) {
	cls := NewClassifier(nil, nil, nil)

	if !cls.IsBotChallenge("https://challenges.cloudflare.com/turnstile/v0/api.js") {
		t.Fatal("cloudflare challenge host not recognised")
	}
	if !cls.IsBotChallenge("https://geo.captcha-delivery.com/captcha/?initialCid=x") {
		t.Fatal("captcha-delivery host not recognised")
	}
	if cls.IsBotChallenge("https://mega.nz/file/a") || cls.IsBotChallenge("https://ouo.io/x") {
		t.Fatal("provider/shortener misclassified as challenge")
	}
}

func TestClassifierCustomLists(t *testing.T) {
	cls := NewClassifier(
		[]string{"ads.example"},
		[]string{"files.example"},
		[]string{"short.example"},
	)
	if !cls.IsAd("https://ads.example/banner") {
		t.Fatal("custom ad domain not honoured")
	}
	if cls.IsAd("https://doubleclick.net/x") {
		t.Fatal("built-in list should be replaced by custom list")
	}
	if !cls.IsDownload("https://files.example/a") || !cls.IsShortener("https://short.example/b") {
		t.Fatal("custom download/shortener domains not honoured")
	}
}
