// Package validate holds the pure syntax checks that gate every link
// operation. They run server-side regardless of any client-side checks;
// nothing here touches the network or the database.
package validate

import (
	"net/url"
	"regexp"
)

var keyRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// DefaultDomain is used whenever the caller omits the domain or supplies
// one outside the allowed set.
const DefaultDomain = "trfc.link"

// AllowedDomains are the portal domains short links may be created under.
var AllowedDomains = []string{"trfc.link", "trafficportal.dev"}

// KeyFormat reports whether key is a well-formed short key: 3-20
// characters, ASCII letters, digits, hyphen or underscore only.
func KeyFormat(key string) bool {
	return keyRegex.MatchString(key)
}

// URL reports whether raw parses as an absolute URL with a scheme and a
// host. Reachability is not checked and the scheme is not restricted.
func URL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// Domain normalizes a requested portal domain. Anything outside the
// allowed set falls back to DefaultDomain rather than erroring, matching
// the portal's own behavior.
func Domain(domain string) string {
	for _, d := range AllowedDomains {
		if domain == d {
			return domain
		}
	}
	return DefaultDomain
}
