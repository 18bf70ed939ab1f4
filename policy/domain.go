package policy

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/assoc-portal/sessions"
)

// DefaultDomain is the institution suffix allowed to hold a session.
const DefaultDomain = "@udel.edu"

// DomainPolicy restricts authentication to one email suffix.
// It is a predicate only: callers that find a disallowed email on an
// established session must sign the session out themselves.
type DomainPolicy struct {
	suffix string
}

// NewDomainPolicy creates a policy for the given suffix. A suffix without a
// leading '@' gets one.
func NewDomainPolicy(suffix string) DomainPolicy {
	if suffix == "" {
		suffix = DefaultDomain
	}
	if !strings.HasPrefix(suffix, "@") {
		suffix = "@" + suffix
	}
	return DomainPolicy{suffix: suffix}
}

// Suffix returns the allowed suffix including the '@'.
func (p DomainPolicy) Suffix() string {
	return p.suffix
}

// IsAllowed is a case-sensitive suffix match. Empty or malformed addresses
// (no local part, more than one '@') are rejected.
func (p DomainPolicy) IsAllowed(email string) bool {
	if p.suffix == "" || email == "" {
		return false
	}
	if strings.Count(email, "@") != 1 {
		return false
	}
	if !strings.HasSuffix(email, p.suffix) {
		return false
	}
	return len(email) > len(p.suffix)
}

// AllowsSession applies IsAllowed to a session's email. A nil session has no
// email and is rejected.
func (p DomainPolicy) AllowsSession(s *sessions.Session) bool {
	if s == nil {
		return false
	}
	return p.IsAllowed(s.Email)
}

// RejectionMessage is the user facing text shown after a domain rejection.
func (p DomainPolicy) RejectionMessage() string {
	return fmt.Sprintf("Only %s emails are allowed", p.suffix)
}
