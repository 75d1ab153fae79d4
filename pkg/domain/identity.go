package domain

import (
	"net/mail"
	"strings"

	"ghostscan/pkg/serrors"

	"golang.org/x/net/publicsuffix"
)

// IdentityToken is the single identifier a scan is performed against.
// Currently always an email address; it is opaque to the pipeline beyond
// format validation.
type IdentityToken string

// NewIdentityToken validates and canonicalizes the raw input. The local part
// keeps its case-sensitivity per RFC 5321, the domain is lowercased.
func NewIdentityToken(raw string) (IdentityToken, error) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", serrors.With(serrors.ErrInvalidToken, "not a valid email address")
	}

	at := strings.LastIndex(raw, "@")
	local, dom := raw[:at], strings.ToLower(raw[at+1:])
	if !strings.Contains(dom, ".") {
		return "", serrors.With(serrors.ErrInvalidToken, "mail domain has no dot")
	}

	return IdentityToken(local + "@" + dom), nil
}

// String returns the token as entered (canonicalized domain).
func (t IdentityToken) String() string { return string(t) }

// LocalPart returns everything before the last "@". For most platforms this
// doubles as the best-guess username for the identity.
func (t IdentityToken) LocalPart() string {
	if at := strings.LastIndex(string(t), "@"); at >= 0 {
		return string(t)[:at]
	}

	return string(t)
}

// Domain returns the mail domain of the token.
func (t IdentityToken) Domain() string {
	if at := strings.LastIndex(string(t), "@"); at >= 0 {
		return string(t)[at+1:]
	}

	return ""
}

// freeMailDomains are consumer mail providers whose domain carries no signal
// about the identity's own infrastructure or organization.
var freeMailDomains = map[string]struct{}{ //nolint: gochecknoglobals
	"gmail.com":   {},
	"yahoo.com":   {},
	"hotmail.com": {},
	"outlook.com": {},
	"icloud.com":  {},
	"proton.me":   {},
}

// RegistrableDomain returns the eTLD+1 of the token's mail domain, or an
// empty string when the domain belongs to a free-mail provider and is
// therefore useless for organization-level lookups.
func (t IdentityToken) RegistrableDomain() string {
	dom := t.Domain()
	if _, ok := freeMailDomains[dom]; ok {
		return ""
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(dom)
	if err != nil {
		return dom
	}

	return registrable
}
