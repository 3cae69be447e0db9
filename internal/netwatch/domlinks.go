package netwatch

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DOMLink is a visible anchor scored by the heuristic analyzer.
type DOMLink struct {
	URL   string
	Text  string
	Score float64
}

// Keywords that suggest an anchor advances the chain.
var positiveKeywords = []string{
	"descargar",
	"download",
	"get link",
	"ver enlace",
	"obtener",
	"ingresar",
	"vínculo",
	"vinculo",
}

const domLinkThreshold = 0.4

// AnalyzeDOMLinks scans anchors in the given HTML, skips javascript and
// fragment hrefs, and scores each: +0.9 on a download URL, +0.3 on a positive
// keyword, zeroed on an ad URL. Links above the threshold are returned sorted
// by descending score.
func (o *Observer) AnalyzeDOMLinks(html string, base *url.URL) []DOMLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		o.log.Debug("parse dom failed", "error", err)
		return nil
	}

	var links []DOMLink
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		resolved := href
		if base != nil {
			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			resolved = base.ResolveReference(ref).String()
		}
		text := strings.TrimSpace(sel.Text())
		score := o.scoreDOMLink(resolved, text)
		if score > domLinkThreshold {
			links = append(links, DOMLink{URL: resolved, Text: text, Score: score})
		}
	})

	sort.SliceStable(links, func(i, j int) bool {
		return links[i].Score > links[j].Score
	})
	return links
}

func (o *Observer) scoreDOMLink(href, text string) float64 {
	if o.cls.IsAd(href) {
		return 0
	}
	score := 0.0
	if o.cls.IsDownload(href) {
		score += 0.9
	}
	lower := strings.ToLower(text)
	for _, kw := range positiveKeywords {
		if strings.Contains(lower, kw) {
			score += 0.3
			break
		}
	}
	return score
}
