package service

import (
	"net/url"
	"strings"

	oauthDomain "github.com/gateproof/authcore/internal/oauth/domain"
)

// RedirectValidatorService validates redirect URIs against an allow-list. A
// candidate passes on an exact string match, or when its scheme, hostname,
// effective port and path all match an allowed entry. Query strings and
// fragments never participate in matching; a fragment or userinfo component
// fails outright.
type RedirectValidatorService struct {
	allowed []string
}

// NewRedirectValidator creates a validator for the given allow-list.
func NewRedirectValidator(allowed []string) *RedirectValidatorService {
	return &RedirectValidatorService{allowed: allowed}
}

// Validate returns ErrInvalidRedirectURI when the URI is not allowed.
func (v *RedirectValidatorService) Validate(redirectURI string) error {
	if redirectURI == "" {
		return oauthDomain.ErrInvalidRedirectURI
	}

	candidate, err := url.Parse(redirectURI)
	if err != nil || candidate.Fragment != "" || candidate.User != nil {
		return oauthDomain.ErrInvalidRedirectURI
	}

	for _, entry := range v.allowed {
		if entry == redirectURI {
			return nil
		}
		allowed, err := url.Parse(entry)
		if err != nil {
			continue
		}
		if componentsMatch(candidate, allowed) {
			return nil
		}
	}
	return oauthDomain.ErrInvalidRedirectURI
}

func componentsMatch(candidate, allowed *url.URL) bool {
	if !strings.EqualFold(candidate.Scheme, allowed.Scheme) {
		return false
	}
	if !strings.EqualFold(candidate.Hostname(), allowed.Hostname()) {
		return false
	}
	if effectivePort(candidate) != effectivePort(allowed) {
		return false
	}
	return normalizePath(candidate.Path) == normalizePath(allowed.Path)
}

func effectivePort(u *url.URL) string {
	if port := u.Port(); port != "" {
		return port
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return "443"
	case "http":
		return "80"
	}
	return ""
}

func normalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return "/"
	}
	return path
}
