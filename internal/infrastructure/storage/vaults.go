package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"steelloop/internal/domain"
	"steelloop/internal/ports"
)

var (
	_ ports.VaultRepository   = (*Store)(nil)
	_ ports.AccountRepository = (*Store)(nil)
)

// GetVault loads a user's identity vault.
func (s *Store) GetVault(ctx context.Context, userID string) (domain.IdentityVault, error) {
	row, err := s.queryRow(ctx, sq.Select("user_id", "vault_data", "audit_status", "version", "updated_at").
		From("identity_vaults").
		Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return domain.IdentityVault{}, err
	}
	var (
		v            domain.IdentityVault
		data, status string
		updated      string
	)
	if err := row.Scan(&v.UserID, &data, &status, &v.Version, &updated); err != nil {
		return domain.IdentityVault{}, notFound("identity vault", userID, err)
	}
	v.Data = json.RawMessage(data)
	v.AuditStatus = domain.AuditStatus(status)
	v.UpdatedAt = parseTime(updated)
	return v, nil
}

// SaveVault upserts the vault in a single statement so readers never see a
// partial write; version starts at 1 and increments on every save.
func (s *Store) SaveVault(ctx context.Context, userID string, data json.RawMessage, status domain.AuditStatus) (domain.IdentityVault, error) {
	if !json.Valid(data) {
		return domain.IdentityVault{}, fmt.Errorf("save vault: data is not valid JSON")
	}
	_, err := s.exec(ctx, sq.Insert("identity_vaults").
		Columns("user_id", "vault_data", "audit_status", "version", "updated_at").
		Values(userID, string(data), string(status), 1, now()).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			vault_data = excluded.vault_data,
			audit_status = excluded.audit_status,
			version = identity_vaults.version + 1,
			updated_at = excluded.updated_at`))
	if err != nil {
		return domain.IdentityVault{}, fmt.Errorf("save vault: %w", err)
	}
	return s.GetVault(ctx, userID)
}

// GetConnection loads the stored tokens for a cloud provider.
func (s *Store) GetConnection(ctx context.Context, userID string, provider domain.Provider) (domain.CloudConnection, error) {
	row, err := s.queryRow(ctx, sq.Select("user_id", "provider", "access_token", "refresh_token", "token_expiry").
		From("cloud_connections").
		Where(sq.Eq{"user_id": userID, "provider": string(provider)}))
	if err != nil {
		return domain.CloudConnection{}, err
	}
	var (
		conn        domain.CloudConnection
		providerRaw string
		expiry      sql.NullString
	)
	if err := row.Scan(&conn.UserID, &providerRaw, &conn.AccessToken, &conn.RefreshToken, &expiry); err != nil {
		return domain.CloudConnection{}, notFound("cloud connection", userID+"/"+string(provider), err)
	}
	conn.Provider = domain.Provider(providerRaw)
	if t := timePtr(expiry); t != nil {
		conn.TokenExpiry = *t
	}
	return conn, nil
}

// SaveConnection overwrites the tokens for (user, provider). Concurrent
// refreshes race harmlessly: the last write wins.
func (s *Store) SaveConnection(ctx context.Context, conn domain.CloudConnection) error {
	var expiry any
	if !conn.TokenExpiry.IsZero() {
		expiry = stamp(conn.TokenExpiry)
	}
	_, err := s.exec(ctx, sq.Insert("cloud_connections").
		Columns("user_id", "provider", "access_token", "refresh_token", "token_expiry", "updated_at").
		Values(conn.UserID, string(conn.Provider), conn.AccessToken, conn.RefreshToken, expiry, now()).
		Suffix(`ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expiry = excluded.token_expiry,
			updated_at = excluded.updated_at`))
	if err != nil {
		return fmt.Errorf("save cloud connection: %w", err)
	}
	return nil
}

// GetSocialAccount loads the linked social account for a provider.
func (s *Store) GetSocialAccount(ctx context.Context, userID, provider string) (domain.SocialAccount, error) {
	row, err := s.queryRow(ctx, sq.Select("user_id", "provider", "external_account_id").
		From("social_accounts").
		Where(sq.Eq{"user_id": userID, "provider": provider}))
	if err != nil {
		return domain.SocialAccount{}, err
	}
	var account domain.SocialAccount
	if err := row.Scan(&account.UserID, &account.Provider, &account.ExternalAccountID); err != nil {
		return domain.SocialAccount{}, notFound("social account", userID+"/"+provider, err)
	}
	return account, nil
}

// SaveSocialAccount links (or relinks) a social account.
func (s *Store) SaveSocialAccount(ctx context.Context, account domain.SocialAccount) error {
	_, err := s.exec(ctx, sq.Insert("social_accounts").
		Columns("user_id", "provider", "external_account_id", "updated_at").
		Values(account.UserID, account.Provider, account.ExternalAccountID, now()).
		Suffix(`ON CONFLICT (user_id, provider) DO UPDATE SET
			external_account_id = excluded.external_account_id,
			updated_at = excluded.updated_at`))
	if err != nil {
		return fmt.Errorf("save social account: %w", err)
	}
	return nil
}
