package accounts

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"tubecast/internal/config"
	"tubecast/internal/logging"
	"tubecast/internal/store"
)

// Registry manages publishing accounts and their credential files.
type Registry struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

// NewRegistry constructs an account registry.
func NewRegistry(cfg *config.Config, s *store.Store, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:    cfg,
		store:  s,
		logger: logging.NewComponentLogger(logger, "accounts"),
	}
}

// ListAccounts returns every account in creation order.
func (r *Registry) ListAccounts(ctx context.Context) ([]store.Account, error) {
	return r.store.ListAccounts(ctx)
}

// FindAccountByName returns the named account, or nil when absent.
func (r *Registry) FindAccountByName(ctx context.Context, name string) (*store.Account, error) {
	return r.store.FindAccountByName(ctx, name)
}

// CreateAccount registers a new account with its credential path reserved.
// The credential file itself is written later, when authorization completes.
func (r *Registry) CreateAccount(ctx context.Context, name string) (*store.Account, error) {
	return r.store.CreateAccount(ctx, name, r.cfg.CredentialPath(name))
}

// RemoveAccount deletes the account and its credential file. The file removal
// is best effort; a missing file is not an error.
func (r *Registry) RemoveAccount(ctx context.Context, id int64) error {
	credentialRef, err := r.store.DeleteAccount(ctx, id)
	if err != nil {
		return err
	}
	if credentialRef == "" {
		return nil
	}
	if err := os.Remove(credentialRef); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("failed to remove credential file",
			logging.String("path", credentialRef),
			logging.Error(err),
		)
	}
	return nil
}
