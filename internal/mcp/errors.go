package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/rpggio/vestline/internal/domain/vesting"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// Codes the transport maps onto JSON-RPC protocol errors.
const (
	CodeMethodNotFound = "METHOD_NOT_FOUND"
	CodeInvalidParams  = "INVALID_PARAMS"
)

func invalidParams(err error) *APIError {
	return &APIError{Code: CodeInvalidParams, Message: err.Error(), RecoveryHint: "Check the tool's input schema"}
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	apiErr := mapSentinel(err)
	if apiErr != nil && errors.Unwrap(err) != nil {
		apiErr.Details = err.Error()
	}
	return apiErr
}

func mapSentinel(err error) *APIError {
	switch {
	case errors.Is(err, vesting.ErrInstanceNotFound):
		return &APIError{Code: "INSTANCE_NOT_FOUND", Message: "vesting schedule not found", RecoveryHint: "Call list_schedules for valid ids"}
	case errors.Is(err, role.ErrUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: "caller does not hold the required role", RecoveryHint: "Check owner and project in get_schedule"}
	case errors.Is(err, role.ErrZeroAddress):
		return &APIError{Code: "ZERO_ADDRESS", Message: "address must not be empty"}
	case errors.Is(err, role.ErrSameAddress):
		return &APIError{Code: "SAME_ADDRESS", Message: "new holder equals the current one"}
	case errors.Is(err, vesting.ErrOnlyProjectOrSender):
		return &APIError{Code: "ONLY_PROJECT_OR_SENDER", Message: "only the beneficiary or the project may claim"}
	case errors.Is(err, vesting.ErrNotBeneficiary):
		return &APIError{Code: "NOT_BENEFICIARY", Message: "caller has no allocation"}
	case errors.Is(err, vesting.ErrNotInsured):
		return &APIError{Code: "NOT_INSURED", Message: "schedule is not insured"}
	case errors.Is(err, vesting.ErrAlreadyActivated):
		return &APIError{Code: "ALREADY_ACTIVATED", Message: "schedule already activated", RecoveryHint: "Allocations and funding are locked after activation"}
	case errors.Is(err, vesting.ErrNotActivated):
		return &APIError{Code: "NOT_ACTIVATED", Message: "schedule not activated", RecoveryHint: "Call activate first"}
	case errors.Is(err, vesting.ErrVestingNotStarted):
		return &APIError{Code: "VESTING_NOT_STARTED", Message: "vesting has not started", RecoveryHint: "Wait for start_time"}
	case errors.Is(err, vesting.ErrEmergencyReleased):
		return &APIError{Code: "EMERGENCY_RELEASED", Message: "regular claims are closed", RecoveryHint: "Use emergency_claim"}
	case errors.Is(err, vesting.ErrEmergencyReleaseActive):
		return &APIError{Code: "EMERGENCY_RELEASE_ACTIVE", Message: "emergency release already active"}
	case errors.Is(err, vesting.ErrNotEmergencyReleased):
		return &APIError{Code: "NOT_EMERGENCY_RELEASED", Message: "emergency release not active", RecoveryHint: "Use claim"}
	case errors.Is(err, vesting.ErrStartTimeInPast):
		return &APIError{Code: "START_TIME_IN_PAST", Message: "start time is in the past"}
	case errors.Is(err, vesting.ErrStartTimeTooDistant):
		return &APIError{Code: "START_TIME_TOO_DISTANT", Message: "start time is beyond the lead window"}
	case errors.Is(err, vesting.ErrTotalAmountZero):
		return &APIError{Code: "TOTAL_AMOUNT_ZERO", Message: "no allocations added", RecoveryHint: "Call set_allocation first"}
	case errors.Is(err, vesting.ErrAllocationExceeded):
		return &APIError{Code: "ALLOCATION_EXCEEDED", Message: "funding exceeds the allocation"}
	case errors.Is(err, vesting.ErrNothingToClaim):
		return &APIError{Code: "NOTHING_TO_CLAIM", Message: "nothing to claim"}
	case errors.Is(err, vesting.ErrInvalidAmount), errors.Is(err, asset.ErrInvalidAmount):
		return &APIError{Code: "INVALID_AMOUNT", Message: "amount must be a non-negative whole number"}
	case errors.Is(err, vesting.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: "invalid input"}
	case errors.Is(err, asset.ErrInsufficientBalance):
		return &APIError{Code: "INSUFFICIENT_BALANCE", Message: "insufficient balance"}
	case errors.Is(err, asset.ErrInsufficientAllowance):
		return &APIError{Code: "INSUFFICIENT_ALLOWANCE", Message: "insufficient allowance", RecoveryHint: "Call asset_approve for the schedule's custody address"}
	case errors.Is(err, asset.ErrInvalidAsset):
		return &APIError{Code: "INVALID_ASSET", Message: "invalid asset"}
	case errors.Is(err, asset.ErrFaucetDisabled):
		return &APIError{Code: "FAUCET_DISABLED", Message: "deposits are disabled"}
	default:
		return nil
	}
}
