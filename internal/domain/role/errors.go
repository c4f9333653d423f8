package role

import "errors"

var (
	// ErrUnauthorized indicates the caller lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrZeroAddress indicates an empty identity was supplied.
	ErrZeroAddress = errors.New("zero address")
	// ErrSameAddress indicates the role already belongs to the given identity.
	ErrSameAddress = errors.New("same address")
)
