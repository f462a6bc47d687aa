package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/keydash/internal/classify"
	"github.com/janekbaraniewski/keydash/internal/core"
)

// NewKey is the input for AddKey. Provider and KeyType are optional overrides
// of the detected classification.
type NewKey struct {
	Name       string        `json:"name"`
	Secret     string        `json:"full_key"`
	AccountID  int64         `json:"account_id"`
	AdminKeyID *int64        `json:"admin_key_id"`
	Provider   core.Provider `json:"provider,omitempty"`
	KeyType    core.KeyType  `json:"key_type,omitempty"`
}

// KeyUpdate replaces a key's name, account and admin link. AccountID zero
// keeps the current account; a nil AdminKeyID unlinks. A non-empty Secret
// replaces the secret and re-runs classification.
type KeyUpdate struct {
	Name       string `json:"name"`
	AccountID  int64  `json:"account_id"`
	AdminKeyID *int64 `json:"admin_key_id"`
	Secret     string `json:"full_key"`
}

const keySelect = `
	SELECT k.id, k.name, k.secret, k.masked_key, k.provider, k.key_type, k.account_id, k.admin_key_id,
	       COALESCE(admin.name, ''), COALESCE(a.email, ''), COALESCE(a.name, ''), COALESCE(a.organization_name, ''),
	       k.created_at, k.updated_at
	FROM api_keys k
	LEFT JOIN api_keys admin ON k.admin_key_id = admin.id
	LEFT JOIN accounts a ON k.account_id = a.id`

// scanKey leaves the stored (possibly sealed) secret in Secret; callers that
// need the plaintext go through openSecret.
func scanKey(row interface{ Scan(...any) error }) (core.KeyRecord, error) {
	var k core.KeyRecord
	var provider, keyType, created, updated string
	var adminID sql.NullInt64
	if err := row.Scan(&k.ID, &k.Name, &k.Secret, &k.MaskedKey, &provider, &keyType, &k.AccountID, &adminID,
		&k.AdminName, &k.AccountEmail, &k.AccountName, &k.OrganizationName, &created, &updated); err != nil {
		return core.KeyRecord{}, err
	}
	k.Provider = core.ParseProvider(provider)
	k.KeyType = core.KeyType(keyType)
	if adminID.Valid {
		k.AdminKeyID = lo.ToPtr(adminID.Int64)
	}
	k.CreatedAt = parseTimestamp(created)
	k.UpdatedAt = parseTimestamp(updated)
	return k, nil
}

func (s *Store) queryKeys(ctx context.Context, where string, args ...any) ([]core.KeyRecord, error) {
	rows, err := s.db.QueryContext(ctx, keySelect+" "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("store: listing keys: %w", err)
	}
	defer rows.Close()

	var out []core.KeyRecord
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scanning key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func withoutSecret(k core.KeyRecord) core.KeyRecord {
	k.Secret = ""
	return k
}

// ListKeys returns every key ordered by account email then name. Secrets are
// not loaded.
func (s *Store) ListKeys(ctx context.Context) ([]core.KeyRecord, error) {
	keys, err := s.queryKeys(ctx, `ORDER BY a.email, k.name`)
	if err != nil {
		return nil, err
	}
	return lo.Map(keys, func(k core.KeyRecord, _ int) core.KeyRecord { return withoutSecret(k) }), nil
}

// ListKeysWithSecrets is ListKeys with plaintext secrets, for probing.
func (s *Store) ListKeysWithSecrets(ctx context.Context) ([]core.KeyRecord, error) {
	keys, err := s.queryKeys(ctx, `ORDER BY a.email, k.name`)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		if keys[i].Secret, err = s.sealer.Open(keys[i].Secret); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// AdminKeys lists the admin keys of one account, for linking project keys.
func (s *Store) AdminKeys(ctx context.Context, accountID int64) ([]core.KeyRecord, error) {
	keys, err := s.queryKeys(ctx, `WHERE k.account_id = ? AND k.key_type = ? ORDER BY k.name`, accountID, string(core.KeyTypeAdmin))
	if err != nil {
		return nil, err
	}
	return lo.Map(keys, func(k core.KeyRecord, _ int) core.KeyRecord { return withoutSecret(k) }), nil
}

func (s *Store) getKey(ctx context.Context, id int64) (core.KeyRecord, error) {
	k, err := scanKey(s.db.QueryRowContext(ctx, keySelect+` WHERE k.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.KeyRecord{}, ErrNotFound
	}
	if err != nil {
		return core.KeyRecord{}, fmt.Errorf("store: reading key %d: %w", id, err)
	}
	return k, nil
}

// GetKey returns the key without its secret.
func (s *Store) GetKey(ctx context.Context, id int64) (core.KeyRecord, error) {
	k, err := s.getKey(ctx, id)
	if err != nil {
		return core.KeyRecord{}, err
	}
	return withoutSecret(k), nil
}

// KeyWithSecret returns the key with its plaintext secret.
func (s *Store) KeyWithSecret(ctx context.Context, id int64) (core.KeyRecord, error) {
	k, err := s.getKey(ctx, id)
	if err != nil {
		return core.KeyRecord{}, err
	}
	if k.Secret, err = s.sealer.Open(k.Secret); err != nil {
		return core.KeyRecord{}, err
	}
	return k, nil
}

// RevealKey returns the plaintext secret. It is the only path by which a
// stored secret leaves the store for display.
func (s *Store) RevealKey(ctx context.Context, id int64) (string, error) {
	k, err := s.KeyWithSecret(ctx, id)
	if err != nil {
		return "", err
	}
	s.logger.Info("key revealed", "event", "key_revealed", "key_id", id, "key_preview", k.MaskedKey)
	return k.Secret, nil
}

// NameExists reports whether name is taken within the account, ignoring the
// key excludeID (zero excludes nothing).
func (s *Store) NameExists(ctx context.Context, name string, accountID, excludeID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM api_keys WHERE name = ? AND account_id = ? AND id != ?`,
		clean(name), accountID, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: checking key name: %w", err)
	}
	return n > 0, nil
}

func (s *Store) AddKey(ctx context.Context, in NewKey) (core.KeyRecord, error) {
	name, secret := clean(in.Name), clean(in.Secret)
	switch {
	case name == "" || secret == "":
		return core.KeyRecord{}, invalid("name and API key are required")
	case in.AccountID == 0:
		return core.KeyRecord{}, invalid("account ID is required")
	}
	c := resolveClassification(secret, in.Provider, in.KeyType)
	if err := s.checkAdminLink(ctx, in.AdminKeyID, 0, c.Provider, in.AccountID); err != nil {
		return core.KeyRecord{}, err
	}
	stored, err := s.sealer.Seal(secret)
	if err != nil {
		return core.KeyRecord{}, err
	}
	masked := core.MaskSecret(secret)
	now := s.timestamp()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (name, secret, masked_key, provider, key_type, account_id, admin_key_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name, stored, masked, string(c.Provider), string(c.KeyType), in.AccountID, nullableID(in.AdminKeyID), now, now)
	if err != nil {
		return core.KeyRecord{}, s.keyWriteError(err, in.AccountID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.KeyRecord{}, fmt.Errorf("store: key id: %w", err)
	}

	s.logger.Info("key added", "event", "key_added", "key_id", id,
		"provider", c.Provider, "key_type", c.KeyType, "key_preview", masked)
	return s.GetKey(ctx, id)
}

func (s *Store) UpdateKey(ctx context.Context, id int64, in KeyUpdate) (core.KeyRecord, error) {
	current, err := s.getKey(ctx, id)
	if err != nil {
		return core.KeyRecord{}, err
	}
	name := clean(in.Name)
	if name == "" {
		return core.KeyRecord{}, invalid("name is required")
	}
	accountID := lo.Ternary(in.AccountID != 0, in.AccountID, current.AccountID)
	secret := clean(in.Secret)
	provider := current.Provider
	if secret != "" {
		provider = classify.Classify(secret).Provider
	}
	if err := s.checkAdminLink(ctx, in.AdminKeyID, id, provider, accountID); err != nil {
		return core.KeyRecord{}, err
	}

	now := s.timestamp()
	if secret != "" {
		c := classify.Classify(secret)
		stored, err := s.sealer.Seal(secret)
		if err != nil {
			return core.KeyRecord{}, err
		}
		_, err = s.db.ExecContext(ctx, `
			UPDATE api_keys SET name = ?, secret = ?, masked_key = ?, provider = ?, key_type = ?,
			       account_id = ?, admin_key_id = ?, updated_at = ?
			WHERE id = ?`,
			name, stored, core.MaskSecret(secret), string(c.Provider), string(c.KeyType),
			accountID, nullableID(in.AdminKeyID), now, id)
		if err != nil {
			return core.KeyRecord{}, s.keyWriteError(err, accountID)
		}
		s.logger.Info("key secret replaced", "event", "key_updated", "key_id", id,
			"provider", c.Provider, "key_type", c.KeyType, "key_preview", core.MaskSecret(secret))
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE api_keys SET name = ?, account_id = ?, admin_key_id = ?, updated_at = ?
			WHERE id = ?`,
			name, accountID, nullableID(in.AdminKeyID), now, id)
		if err != nil {
			return core.KeyRecord{}, s.keyWriteError(err, accountID)
		}
	}
	return s.GetKey(ctx, id)
}

// DeleteKey removes the key. Project keys linked to it become orphaned.
func (s *Store) DeleteKey(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: deleting key %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	s.logger.Info("key deleted", "event", "key_deleted", "key_id", id)
	return nil
}

// checkAdminLink requires a linked key to exist, be an admin key of the same
// provider in the same account, and not be the key itself.
func (s *Store) checkAdminLink(ctx context.Context, adminID *int64, self int64, provider core.Provider, accountID int64) error {
	if adminID == nil {
		return nil
	}
	if *adminID == self {
		return invalid("a key cannot be its own admin key")
	}
	admin, err := s.getKey(ctx, *adminID)
	if errors.Is(err, ErrNotFound) {
		return invalid("admin key %d does not exist", *adminID)
	}
	if err != nil {
		return err
	}
	switch {
	case !admin.IsAdmin():
		return invalid("key %d is not an admin key", *adminID)
	case admin.Provider != provider:
		return invalid("admin key %d belongs to %s, not %s", *adminID, admin.Provider, provider)
	case admin.AccountID != accountID:
		return invalid("admin key %d belongs to another account", *adminID)
	}
	return nil
}

func (s *Store) keyWriteError(err error, accountID int64) error {
	switch {
	case isUniqueViolation(err):
		return ErrDuplicateName
	case isForeignKeyViolation(err):
		return invalid("account %d does not exist", accountID)
	default:
		return fmt.Errorf("store: writing key: %w", err)
	}
}

func resolveClassification(secret string, provider core.Provider, keyType core.KeyType) core.Classification {
	c := classify.Classify(secret)
	if provider == "" {
		return c
	}
	override := core.ParseProvider(string(provider))
	if override == c.Provider {
		return core.Classification{Provider: override, KeyType: lo.CoalesceOrEmpty(keyType, c.KeyType)}
	}
	return core.Classification{Provider: override, KeyType: lo.CoalesceOrEmpty(keyType, core.KeyTypeAPI)}
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
