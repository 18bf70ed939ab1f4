package auth

import (
	"net/url"
	"strings"
)

const maxEmailLength = 254

// validEmail checks the basic shape of an address. Domain rules are applied
// by callers through the domain policy.
func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n<>\"") {
		return false
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at != strings.LastIndexByte(email, '@') {
		return false
	}
	domain := email[at+1:]
	return domain != "" && strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// sameOriginRedirect resolves redirectTo against baseURL and returns it only
// when it stays on the same scheme and host.
func sameOriginRedirect(baseURL, redirectTo string) string {
	redirectTo = strings.TrimSpace(redirectTo)
	if redirectTo == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return ""
	}
	if strings.HasPrefix(redirectTo, "/") && !strings.HasPrefix(redirectTo, "//") {
		redirectTo = base.Scheme + "://" + base.Host + redirectTo
	}
	u, err := url.Parse(redirectTo)
	if err != nil || u.Scheme != base.Scheme || u.Host != base.Host {
		return ""
	}
	return u.String()
}
