package repository

import (
	"context"

	"github.com/rpggio/vestline/internal/domain/role"
)

// APIKeyRepository maps bearer tokens to caller identities
type APIKeyRepository interface {
	Add(ctx context.Context, token string, identity role.Address, description string) error
	ResolveIdentity(ctx context.Context, token string) (role.Address, error)
}
