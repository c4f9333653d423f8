package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/rpggio/vestline/internal/repository"
)

// APIKeyRepository maps bearer tokens to caller identities. Only token hashes are stored.
type APIKeyRepository struct {
	db *DB
}

var _ repository.APIKeyRepository = (*APIKeyRepository)(nil)

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Add registers token for identity
func (r *APIKeyRepository) Add(ctx context.Context, token string, identity role.Address, description string) error {
	if token == "" || identity.IsZero() {
		return repository.ErrInvalidInput
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, identity, created_at, description) VALUES (?, ?, ?, ?)`,
		HashToken(token), string(identity), time.Now().Unix(), description,
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveIdentity returns the identity registered for token and records its use
func (r *APIKeyRepository) ResolveIdentity(ctx context.Context, token string) (role.Address, error) {
	hash := HashToken(token)
	var identity string
	err := r.db.QueryRowContext(ctx, `SELECT identity FROM api_keys WHERE key_hash = ?`, hash).Scan(&identity)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().Unix(), hash); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return role.Address(identity), nil
}

// HashToken returns the hex SHA-256 of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
