package application

import (
	"errors"
	"strings"
)

type LoginCommand struct {
	Email    string
	Password string
}

func (c LoginCommand) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return errors.New("email is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}

	return nil
}

type SwitchCommand struct {
	// AccountRef is an account id or name.
	AccountRef string
}
