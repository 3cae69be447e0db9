package chain

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var metaRefreshURL = regexp.MustCompile(`(?i)url\s*=\s*['"]?([^'";]+)`)

// ExtractMetaRefresh scans the document for a meta refresh directive and
// returns its target resolved against base. Malformed documents are tolerated
// up to the point of the error.
func ExtractMetaRefresh(htmlSrc string, base *url.URL) (string, bool) {
	tok := html.NewTokenizer(strings.NewReader(htmlSrc))
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tok.TagName()
			if !strings.EqualFold(string(name), "meta") || !hasAttr {
				continue
			}
			var httpEquiv, content string
			for {
				k, v, more := tok.TagAttr()
				switch strings.ToLower(string(k)) {
				case "http-equiv":
					httpEquiv = strings.ToLower(strings.TrimSpace(string(v)))
				case "content":
					content = string(v)
				}
				if !more {
					break
				}
			}
			if httpEquiv != "refresh" {
				continue
			}
			m := metaRefreshURL.FindStringSubmatch(content)
			if m == nil {
				continue
			}
			raw := strings.TrimSpace(m[1])
			if raw == "" {
				continue
			}
			if base != nil {
				if ref, err := url.Parse(raw); err == nil {
					raw = base.ResolveReference(ref).String()
				}
			}
			return raw, true
		}
	}
}
