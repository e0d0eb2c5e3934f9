package domain

import (
	"fmt"
	"strings"
)

type AccountID string

// Account is the registry's read-only view of an identity: the cookies that
// impersonate it in the browser.
type Account struct {
	ID                 AccountID
	Name               string
	Cookies            []CookieSpec
	MaxConcurrentUsers int
}

type CookieSpec struct {
	Domain string
	Name   string
	Value  string
}

func (a Account) Validate() error {
	if strings.TrimSpace(string(a.ID)) == "" {
		return fmt.Errorf("%w: empty account id", ErrInvalidAccount)
	}
	if len(a.Cookies) == 0 {
		return fmt.Errorf("%w: account %s has no cookies", ErrInvalidAccount, a.ID)
	}
	for _, spec := range a.Cookies {
		if CleanDomain(spec.Domain) == "" {
			return fmt.Errorf("%w: account %s has a cookie without domain", ErrInvalidAccount, a.ID)
		}
		if strings.TrimSpace(spec.Name) == "" {
			return fmt.Errorf("%w: account %s has a cookie without name", ErrInvalidAccount, a.ID)
		}
	}

	return nil
}

// PrimaryDomain is the domain the remote session is registered against.
func (a Account) PrimaryDomain() string {
	for _, spec := range a.Cookies {
		if domain := CleanDomain(spec.Domain); domain != "" {
			return domain
		}
	}

	return ""
}

func (a Account) DisplayName() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}

	return string(a.ID)
}

// FindAccount resolves ref against account ids first, then names (case-insensitive).
func FindAccount(accounts []Account, ref string) (Account, error) {
	ref = strings.TrimSpace(ref)
	for _, account := range accounts {
		if string(account.ID) == ref {
			return account, nil
		}
	}
	for _, account := range accounts {
		if strings.EqualFold(account.Name, ref) {
			return account, nil
		}
	}

	return Account{}, fmt.Errorf("%w: %q", ErrAccountNotFound, ref)
}
