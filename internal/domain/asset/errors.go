package asset

import "errors"

var (
	// ErrInsufficientBalance indicates the holder cannot cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance indicates the spender was not approved for the amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrInvalidAmount indicates a negative or fractional amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidAsset indicates an empty or unsupported asset identifier.
	ErrInvalidAsset = errors.New("invalid asset")
	// ErrFaucetDisabled indicates deposits are not allowed on this deployment.
	ErrFaucetDisabled = errors.New("asset faucet disabled")
)
