package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/haxgun/Arcane/crypto"
)

// GetToken loads the token stored for provider, decrypting it when the row
// was written encrypted.
func (s *Store) GetToken(ctx context.Context, provider string) (Token, error) {
	var row struct {
		Provider     string       `db:"provider"`
		AccessToken  string       `db:"access_token"`
		RefreshToken string       `db:"refresh_token"`
		ExpiresAt    sql.NullTime `db:"expires_at"`
		Scope        string       `db:"scope"`
		Version      int          `db:"encryption_version"`
		UpdatedAt    sql.NullTime `db:"updated_at"`
	}
	err := s.db.GetContext(ctx, &row, s.q(`SELECT provider, access_token, refresh_token, expires_at, scope, encryption_version, updated_at
		FROM oauth_tokens WHERE provider = ?`), provider)
	if err != nil {
		return Token{}, notFound(err, "token "+provider)
	}
	tok := Token{
		Provider:     row.Provider,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		Scope:        row.Scope,
	}
	if row.ExpiresAt.Valid {
		tok.ExpiresAt = row.ExpiresAt.Time
	}
	if row.UpdatedAt.Valid {
		tok.UpdatedAt = row.UpdatedAt.Time
	}
	if row.Version == 1 {
		if s.enc == nil {
			return Token{}, fmt.Errorf("token %s is encrypted but no ENCRYPTION_KEY is configured", provider)
		}
		if tok.AccessToken, err = crypto.DecryptString(s.enc, row.AccessToken); err != nil {
			return Token{}, fmt.Errorf("decrypt access token: %w", err)
		}
		if tok.RefreshToken, err = crypto.DecryptString(s.enc, row.RefreshToken); err != nil {
			return Token{}, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	return tok, nil
}

// SaveToken inserts or replaces the token for tok.Provider.
func (s *Store) SaveToken(ctx context.Context, tok Token) error {
	access, refresh, version := tok.AccessToken, tok.RefreshToken, 0
	if s.enc != nil {
		var err error
		if access, err = crypto.EncryptString(s.enc, tok.AccessToken); err != nil {
			return fmt.Errorf("encrypt access token: %w", err)
		}
		if refresh, err = crypto.EncryptString(s.enc, tok.RefreshToken); err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
		version = 1
	}
	var expires any
	if !tok.ExpiresAt.IsZero() {
		expires = tok.ExpiresAt.UTC()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO oauth_tokens (provider, access_token, refresh_token, expires_at, scope, encryption_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			encryption_version = excluded.encryption_version,
			updated_at = excluded.updated_at`),
		tok.Provider, access, refresh, expires, strings.TrimSpace(tok.Scope), version, s.now().UTC())
	if err != nil {
		return fmt.Errorf("save token %s: %w", tok.Provider, err)
	}
	return nil
}

// Encrypts reports whether tokens are written encrypted.
func (s *Store) Encrypts() bool { return s.enc != nil }

// PlaintextTokenProviders lists providers whose row is not encrypted.
func (s *Store) PlaintextTokenProviders(ctx context.Context) ([]string, error) {
	var providers []string
	err := s.db.SelectContext(ctx, &providers, `SELECT provider FROM oauth_tokens WHERE encryption_version = 0 ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("list plaintext tokens: %w", err)
	}
	return providers, nil
}

// TokenEncryptionStatus counts token rows per encryption version.
func (s *Store) TokenEncryptionStatus(ctx context.Context) (map[int]int, error) {
	var rows []struct {
		Version int `db:"encryption_version"`
		Count   int `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows, `SELECT encryption_version, COUNT(*) AS n FROM oauth_tokens GROUP BY encryption_version`)
	if err != nil {
		return nil, fmt.Errorf("token encryption status: %w", err)
	}
	out := make(map[int]int, len(rows))
	for _, r := range rows {
		out[r.Version] = r.Count
	}
	return out, nil
}
