package domain

import (
	"strings"
)

const (
	HeaderCookieName = "header_cookies"
	HostLockedPrefix = "__Host-"
	rootPath         = "/"
)

type SameSite string

const (
	SameSiteUnspecified   SameSite = ""
	SameSiteLax           SameSite = "lax"
	SameSiteStrict        SameSite = "strict"
	SameSiteNoRestriction SameSite = "no_restriction"
)

// Cookie is an entry read back from the browser jar.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite SameSite
}

// URL rebuilds the address a jar needs to address this cookie for removal.
func (c Cookie) URL() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	path := c.Path
	if path == "" {
		path = rootPath
	}

	return scheme + "://" + CleanDomain(c.Domain) + path
}

// CookieWrite carries every attribute of a single jar write.
// An empty Domain produces a host-only cookie.
type CookieWrite struct {
	URL      string
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	SameSite SameSite
}

type CookieFilter struct {
	Domain string
	Name   string
}

func IsHostLocked(name string) bool {
	return strings.HasPrefix(name, HostLockedPrefix)
}

// ParseHeaderCookies splits a serialized "a=1; b=2" batch into cookies for
// domain. Pairs without '=' or with an empty name or value are dropped.
func ParseHeaderCookies(domain, raw string) []CookieSpec {
	parts := strings.Split(raw, ";")
	specs := make([]CookieSpec, 0, len(parts))
	for _, part := range parts {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		specs = append(specs, CookieSpec{Domain: domain, Name: name, Value: value})
	}

	return specs
}

// ExpandCookies returns the individual cookies an account applies, with
// header batches flattened in place.
func ExpandCookies(specs []CookieSpec) []CookieSpec {
	expanded := make([]CookieSpec, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == HeaderCookieName {
			expanded = append(expanded, ParseHeaderCookies(spec.Domain, spec.Value)...)
			continue
		}
		expanded = append(expanded, spec)
	}

	return expanded
}

// StrictWrite is the first attempt for a cookie: secure, lax and scoped to
// the cookie's domain. Host-locked cookies never carry a domain attribute.
func StrictWrite(spec CookieSpec) CookieWrite {
	write := CookieWrite{
		URL:      "https://" + CleanDomain(spec.Domain) + rootPath,
		Name:     spec.Name,
		Value:    spec.Value,
		Domain:   spec.Domain,
		Path:     rootPath,
		Secure:   true,
		SameSite: SameSiteLax,
	}
	if IsHostLocked(spec.Name) {
		write.Domain = ""
	}

	return write
}

// RelaxedWrite is the compatibility fallback. ok is false for host-locked
// cookies, which have no fallback.
func RelaxedWrite(spec CookieSpec) (CookieWrite, bool) {
	if IsHostLocked(spec.Name) {
		return CookieWrite{}, false
	}

	domain := CleanDomain(spec.Domain)
	return CookieWrite{
		URL:      "http://" + domain + rootPath,
		Name:     spec.Name,
		Value:    spec.Value,
		Domain:   domain,
		Path:     rootPath,
		Secure:   false,
		SameSite: SameSiteNoRestriction,
	}, true
}
