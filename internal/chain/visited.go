package chain

import (
	"net/url"
	"strings"
)

// visitedSet tracks chain hops by canonical URL so loops are caught even when
// a shortener bounces back with a different fragment or case.
type visitedSet struct {
	keys map[string]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{keys: make(map[string]struct{})}
}

func (v *visitedSet) Seen(rawurl string) bool {
	_, ok := v.keys[canonicalKey(rawurl)]
	return ok
}

func (v *visitedSet) Add(rawurl string) {
	v.keys[canonicalKey(rawurl)] = struct{}{}
}

// canonicalKey lowers scheme and host and drops the fragment. Query strings
// stay significant because shorteners encode hop state in them.
func canonicalKey(rawurl string) string {
	u, err := url.Parse(strings.TrimSpace(rawurl))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(rawurl)
	}
	key := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + u.Path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key
}
