package vesting

import "errors"

var (
	// ErrInstanceNotFound indicates the vesting instance doesn't exist.
	ErrInstanceNotFound = errors.New("vesting instance not found")
	// ErrInvalidInput indicates malformed request fields.
	ErrInvalidInput = errors.New("invalid vesting input")
	// ErrInvalidAmount indicates a negative, fractional, or zero amount where one is required.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrOnlyProjectOrSender indicates the caller is neither the beneficiary nor the project role.
	ErrOnlyProjectOrSender = errors.New("only project or sender")
	// ErrNotBeneficiary indicates the caller holds no allocation.
	ErrNotBeneficiary = errors.New("caller has no allocation")
	// ErrNotInsured indicates an insured-only operation on a standard instance.
	ErrNotInsured = errors.New("operation requires the insured variant")

	// ErrAlreadyActivated indicates the instance left the pending phase.
	ErrAlreadyActivated = errors.New("already activated")
	// ErrNotActivated indicates the instance is still pending.
	ErrNotActivated = errors.New("not activated")
	// ErrVestingNotStarted indicates the vesting clock has not reached the start time.
	ErrVestingNotStarted = errors.New("vesting not started")
	// ErrEmergencyReleased indicates regular claims are closed by the emergency gate.
	ErrEmergencyReleased = errors.New("emergency released")
	// ErrEmergencyReleaseActive indicates the emergency gate is already tripped.
	ErrEmergencyReleaseActive = errors.New("emergency release already active")
	// ErrNotEmergencyReleased indicates the emergency gate is not tripped.
	ErrNotEmergencyReleased = errors.New("not emergency released")

	// ErrStartTimeInPast indicates an activation start before now.
	ErrStartTimeInPast = errors.New("start time in past")
	// ErrStartTimeTooDistant indicates an activation start beyond the lead window.
	ErrStartTimeTooDistant = errors.New("start time too distant")
	// ErrTotalAmountZero indicates activation with no allocations.
	ErrTotalAmountZero = errors.New("total amount zero: no allocations added")
	// ErrAllocationExceeded indicates funding above the beneficiary's cap.
	ErrAllocationExceeded = errors.New("allocation exceeded")

	// ErrNothingToClaim indicates a zero claimable or recoverable amount.
	ErrNothingToClaim = errors.New("nothing to claim")
)
