package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrAccountExists indicates an account with the requested name already exists.
var ErrAccountExists = errors.New("account already exists")

// ErrAccountNotFound indicates the requested account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// CreateAccount inserts a named publishing destination. Names are unique.
func (s *Store) CreateAccount(ctx context.Context, name, credentialRef string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("account name required")
	}

	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO accounts (name, credential_ref, created_at) VALUES (?, ?, ?)`,
		name,
		credentialRef,
		formatTime(now),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", ErrAccountExists, name)
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("account id: %w", err)
	}
	return &Account{ID: id, Name: name, CredentialRef: credentialRef, CreatedAt: now}, nil
}

// ListAccounts returns all accounts ordered by creation.
func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, credential_ref, created_at FROM accounts ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// GetAccount fetches one account by id.
func (s *Store) GetAccount(ctx context.Context, id int64) (*Account, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, credential_ref, created_at FROM accounts WHERE id = ?`, id,
	)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrAccountNotFound, id)
		}
		return nil, err
	}
	return &account, nil
}

// FindAccountByName fetches one account by its unique name; nil when absent.
func (s *Store) FindAccountByName(ctx context.Context, name string) (*Account, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, credential_ref, created_at FROM accounts WHERE name = ?`,
		strings.TrimSpace(name),
	)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// DeleteAccount removes an account and returns its credential reference so
// the caller can release the credential resource it named.
func (s *Store) DeleteAccount(ctx context.Context, id int64) (string, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := s.execWithRetry(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("delete account: %w", err)
	}
	return account.CredentialRef, nil
}

// SetAccountCredential updates the opaque credential reference for an account.
func (s *Store) SetAccountCredential(ctx context.Context, id int64, credentialRef string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE accounts SET credential_ref = ? WHERE id = ?`, credentialRef, id,
	)
	if err != nil {
		return fmt.Errorf("update account credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("account credential rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrAccountNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		account   Account
		createdAt string
	)
	if err := row.Scan(&account.ID, &account.Name, &account.CredentialRef, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, err
		}
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	account.CreatedAt = parseTime(createdAt)
	return account, nil
}
