package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/janekbaraniewski/keydash/internal/core"
)

type AccountInput struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	OrganizationName string `json:"organization_name"`
}

func (in AccountInput) normalized() (AccountInput, error) {
	in.Email = clean(in.Email)
	in.Name = clean(in.Name)
	in.OrganizationName = clean(in.OrganizationName)
	if in.Email == "" {
		return in, invalid("email is required")
	}
	return in, nil
}

const accountColumns = `id, email, name, organization_name, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	var created, updated string
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.OrganizationName, &created, &updated); err != nil {
		return core.Account{}, err
	}
	a.CreatedAt = parseTimestamp(created)
	a.UpdatedAt = parseTimestamp(updated)
	return a, nil
}

// ListAccounts returns all accounts ordered by email.
func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("store: listing accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("store: reading account %d: %w", id, err)
	}
	return a, nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (core.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, clean(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("store: reading account %q: %w", email, err)
	}
	return a, nil
}

func (s *Store) AddAccount(ctx context.Context, in AccountInput) (core.Account, error) {
	in, err := in.normalized()
	if err != nil {
		return core.Account{}, err
	}
	now := s.timestamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (email, name, organization_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		in.Email, in.Name, in.OrganizationName, now, now)
	if isUniqueViolation(err) {
		return core.Account{}, ErrDuplicateEmail
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("store: inserting account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("store: account id: %w", err)
	}
	s.logger.Info("account added", "event", "account_added", "account_id", id)
	return s.GetAccount(ctx, id)
}

func (s *Store) UpdateAccount(ctx context.Context, id int64, in AccountInput) (core.Account, error) {
	in, err := in.normalized()
	if err != nil {
		return core.Account{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET email = ?, name = ?, organization_name = ?, updated_at = ? WHERE id = ?`,
		in.Email, in.Name, in.OrganizationName, s.timestamp(), id)
	if isUniqueViolation(err) {
		return core.Account{}, ErrDuplicateEmail
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("store: updating account %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return core.Account{}, err
	}
	return s.GetAccount(ctx, id)
}

// DeleteAccount removes the account and, through the foreign key cascade,
// every key it owns.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: deleting account %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	s.logger.Info("account deleted", "event", "account_deleted", "account_id", id)
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
