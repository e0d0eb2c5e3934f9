package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/bnema/cookie-accounts-cli/internal/ports"
	"github.com/google/uuid"
)

// Service covers the registry account surface around the coordinator:
// login, the account catalog and status queries.
type Service struct {
	auth     ports.Authenticator
	catalog  ports.AccountCatalog
	registry ports.SessionRegistry
	state    ports.StateRepository
	store    ports.SecretStore
}

func NewService(auth ports.Authenticator, catalog ports.AccountCatalog, registry ports.SessionRegistry, state ports.StateRepository, store ports.SecretStore) *Service {
	return &Service{
		auth:     auth,
		catalog:  catalog,
		registry: registry,
		state:    state,
		store:    store,
	}
}

// Login stores the registry token and records the user. The stored token is
// removed again when the profile cannot be saved.
func (s *Service) Login(ctx context.Context, cmd LoginCommand) (domain.User, error) {
	if err := cmd.Validate(); err != nil {
		return domain.User{}, err
	}

	token, user, err := s.auth.Login(ctx, cmd.Email, cmd.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("login: %w", err)
	}

	profile, err := s.state.LoadProfile(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("load profile: %w", err)
	}

	if err := s.store.Put(ctx, domain.RegistryTokenKey, token); err != nil {
		return domain.User{}, fmt.Errorf("store registry token: %w", err)
	}

	profile.User = user
	if profile.DeviceID == "" {
		profile.DeviceID = uuid.NewString()
	}

	if err := s.state.SaveProfile(ctx, profile); err != nil {
		if rollbackErr := s.store.Delete(ctx, domain.RegistryTokenKey); rollbackErr != nil {
			return domain.User{}, fmt.Errorf("save profile and rollback stored token: %w", errors.Join(err, rollbackErr))
		}

		return domain.User{}, fmt.Errorf("save profile: %w", err)
	}

	return user, nil
}

// ForgetCredentials deletes the stored token and the user, keeping the device id.
func (s *Service) ForgetCredentials(ctx context.Context) error {
	profile, err := s.state.LoadProfile(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	originalProfile := profile

	profile.User = domain.User{}
	if err := s.state.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	if err := s.store.Delete(ctx, domain.RegistryTokenKey); err != nil {
		if restoreErr := s.state.SaveProfile(ctx, originalProfile); restoreErr != nil {
			return fmt.Errorf("delete registry token and restore profile: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("delete registry token: %w", err)
	}

	return nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.catalog.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, nil
}

func (s *Service) ResolveAccount(ctx context.Context, ref string) (domain.Account, error) {
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	return domain.FindAccount(accounts, ref)
}

// Status reports the local slot and, when live is set and a session exists,
// the registry counters for it.
func (s *Service) Status(ctx context.Context, coordinator *Coordinator, live bool) (Status, error) {
	profile, err := s.state.LoadProfile(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("load profile: %w", err)
	}

	status := Status{
		User:     profile.User,
		DeviceID: profile.DeviceID,
		LoggedIn: profile.User.ID != "",
		Managed:  coordinator.ManagedDomains(),
	}

	current, ok := coordinator.Current()
	if !ok {
		return status, nil
	}
	status.Current = &current

	if live && status.LoggedIn {
		info, err := s.registry.PollSession(ctx, current.Account.ID)
		if err != nil {
			status.RemoteErr = err
		} else {
			status.Remote = &info
		}
	}

	return status, nil
}
