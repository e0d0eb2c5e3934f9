package domain

import (
	"net/url"
	"slices"
	"strings"
)

func CleanDomain(domain string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
}

// HostMatchesDomain reports whether host is domain or one of its subdomains.
func HostMatchesDomain(host, domain string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	domain = CleanDomain(domain)
	if host == "" || domain == "" {
		return false
	}

	return host == domain || strings.HasSuffix(host, "."+domain)
}

// HostOf extracts the lower-cased hostname of a tab URL.
func HostOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	return strings.ToLower(parsed.Hostname())
}

// ManagedDomains is a sorted, de-duplicated set of cleaned hostnames.
type ManagedDomains []string

func NewManagedDomains(domains ...string) ManagedDomains {
	set := make(ManagedDomains, 0, len(domains))
	for _, domain := range domains {
		cleaned := CleanDomain(domain)
		if cleaned == "" || slices.Contains(set, cleaned) {
			continue
		}
		set = append(set, cleaned)
	}
	slices.Sort(set)

	return set
}

// DomainsOf derives the managed set of an account's cookies.
func DomainsOf(account Account) ManagedDomains {
	domains := make([]string, 0, len(account.Cookies))
	for _, spec := range account.Cookies {
		domains = append(domains, spec.Domain)
	}

	return NewManagedDomains(domains...)
}

func (d ManagedDomains) Contains(domain string) bool {
	return slices.Contains(d, CleanDomain(domain))
}

// Match returns the managed domain host belongs to.
func (d ManagedDomains) Match(host string) (string, bool) {
	for _, domain := range d {
		if HostMatchesDomain(host, domain) {
			return domain, true
		}
	}

	return "", false
}

func (d ManagedDomains) Without(other ManagedDomains) ManagedDomains {
	remaining := make(ManagedDomains, 0, len(d))
	for _, domain := range d {
		if !other.Contains(domain) {
			remaining = append(remaining, domain)
		}
	}

	return remaining
}

func (d ManagedDomains) Equal(other ManagedDomains) bool {
	return slices.Equal(d, other)
}
