package vesting

import (
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

// EventType names an observable state change.
type EventType string

const (
	EventAllocationChanged      EventType = "allocation_changed"
	EventFundsAdded             EventType = "funds_added"
	EventActivated              EventType = "activated"
	EventClaimed                EventType = "claimed"
	EventDecisionToggled        EventType = "decision_toggled"
	EventEmergencyReleased      EventType = "emergency_released"
	EventEmergencyClaimed       EventType = "emergency_claimed"
	EventRecovered              EventType = "recovered"
	EventProjectRoleTransferred EventType = "project_role_transferred"
	EventOwnershipTransferred   EventType = "ownership_transferred"
)

// Event is published once the operation that produced it has committed.
type Event struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	InstanceID  string          `json:"instance_id"`
	Actor       role.Address    `json:"actor"`
	Beneficiary role.Address    `json:"beneficiary,omitempty"`
	Asset       asset.ID        `json:"asset,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	// Detail carries type-specific values such as the previous role holder or the decision.
	Detail     map[string]string `json:"detail,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
