package vesting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/rpggio/vestline/internal/repository"
	"github.com/shopspring/decimal"
)

// DefaultDuration is the schedule length used when none is configured.
const DefaultDuration = 730 * 24 * time.Hour

// Defaults apply to instances created without explicit timing.
type Defaults struct {
	Duration    time.Duration
	MaxLeadTime time.Duration
}

// Service handles vesting business logic.
type Service struct {
	repo      Repository
	publisher Publisher
	clock     Clock
	ids       IDGenerator
	defaults  Defaults
	logger    *slog.Logger
}

// NewService creates a new vesting service. A nil clock or id generator
// falls back to wall time and random UUIDs.
func NewService(repo Repository, publisher Publisher, clock Clock, ids IDGenerator, defaults Defaults, logger *slog.Logger) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if defaults.Duration <= 0 {
		defaults.Duration = DefaultDuration
	}
	if defaults.MaxLeadTime <= 0 {
		defaults.MaxLeadTime = DefaultMaxLeadTime
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		ids:       ids,
		defaults:  defaults,
		logger:    logger,
	}
}

// SystemClock reads wall time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator issues random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// CreateRequest describes a new vesting instance. The caller becomes owner.
type CreateRequest struct {
	Caller           role.Address
	Project          role.Address
	Variant          Variant
	DistributedAsset asset.ID
	FundingAsset     asset.ID
	Ratio            Ratio
	NativeRecipient  NativeRecipient
	Duration         time.Duration
	MaxLeadTime      time.Duration
}

// BeneficiaryView is a beneficiary's record with what they could claim now.
type BeneficiaryView struct {
	Record    BeneficiaryRecord `json:"record"`
	Claimable Claimable         `json:"claimable"`
	Exists    bool              `json:"exists"`
}

// Summary is an instance's headline figures.
type Summary struct {
	Instance         *Instance                    `json:"instance"`
	Liability        decimal.Decimal              `json:"liability"`
	FundingLiability decimal.Decimal              `json:"funding_liability"`
	Elapsed          Fraction                     `json:"elapsed"`
	Beneficiaries    int                          `json:"beneficiaries"`
	Custody          map[asset.ID]decimal.Decimal `json:"custody"`
}

// Create opens a new pending instance.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Instance, error) {
	inst, err := s.buildInstance(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, inst); err != nil {
		return nil, fmt.Errorf("creating instance: %w", err)
	}
	s.logger.Info("vesting instance created",
		"instance_id", inst.ID,
		"variant", inst.Variant,
		"owner", inst.Roles.Owner,
		"project", inst.Roles.Project,
		"distributed_asset", inst.DistributedAsset,
	)
	return inst, nil
}

func (s *Service) buildInstance(req CreateRequest) (*Instance, error) {
	if req.Caller.IsZero() || req.Project.IsZero() {
		return nil, role.ErrZeroAddress
	}
	variant := req.Variant
	if variant == "" {
		variant = VariantStandard
	}
	if variant != VariantStandard && variant != VariantInsured {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrInvalidInput, variant)
	}
	if req.DistributedAsset.IsZero() || req.DistributedAsset == asset.Native {
		return nil, fmt.Errorf("%w: distributed asset", asset.ErrInvalidAsset)
	}

	ratio := Ratio{Num: 1, Den: 1}
	var funding asset.ID
	if variant == VariantInsured {
		if req.FundingAsset.IsZero() || req.FundingAsset == asset.Native || req.FundingAsset == req.DistributedAsset {
			return nil, fmt.Errorf("%w: funding asset", asset.ErrInvalidAsset)
		}
		if !req.Ratio.Valid() {
			return nil, fmt.Errorf("%w: ratio must be positive", ErrInvalidInput)
		}
		ratio = req.Ratio
		funding = req.FundingAsset
	} else if !req.FundingAsset.IsZero() {
		return nil, fmt.Errorf("%w: funding asset on standard instance", ErrInvalidInput)
	}

	native := req.NativeRecipient
	if native == "" {
		native = NativeToProject
	}
	if native != NativeToProject && native != NativeToOwner {
		return nil, fmt.Errorf("%w: unknown native recipient %q", ErrInvalidInput, native)
	}

	duration := req.Duration
	if duration == 0 {
		duration = s.defaults.Duration
	}
	if duration < time.Second {
		return nil, fmt.Errorf("%w: duration below one second", ErrInvalidInput)
	}
	lead := req.MaxLeadTime
	if lead == 0 {
		lead = s.defaults.MaxLeadTime
	}
	if lead < 0 {
		return nil, fmt.Errorf("%w: negative max lead time", ErrInvalidInput)
	}

	id := s.ids.NewID()
	return &Instance{
		ID:               id,
		Variant:          variant,
		Roles:            role.Roles{Owner: req.Caller, Project: req.Project},
		Custody:          CustodyAddress(id),
		Phase:            PhasePending,
		Duration:         duration.Truncate(time.Second),
		MaxLeadTime:      lead,
		DistributedAsset: req.DistributedAsset,
		FundingAsset:     funding,
		Ratio:            ratio,
		NativeRecipient:  native,
		Totals:           zeroTotals(),
		CreatedAt:        s.clock.Now().UTC().Truncate(time.Second),
	}, nil
}

// CustodyAddress is the holder identity an instance keeps assets under.
func CustodyAddress(instanceID string) role.Address {
	return role.Address("vesting:" + instanceID)
}

func zeroTotals() Totals {
	return Totals{
		Entitlement:       decimal.Zero,
		Claimed:           decimal.Zero,
		FundingAllocation: decimal.Zero,
		Funded:            decimal.Zero,
		FundingClaimed:    decimal.Zero,
	}
}

// Get returns an instance with its records.
func (s *Service) Get(ctx context.Context, id string) (*Instance, error) {
	var out *Instance
	err := s.view(ctx, id, func(inst *Instance, _ Bank) error {
		out = inst.Clone()
		return nil
	})
	return out, err
}

// List returns every instance without records.
func (s *Service) List(ctx context.Context) ([]Instance, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	return list, nil
}

// Beneficiary returns user's record and current claimable amounts.
func (s *Service) Beneficiary(ctx context.Context, id string, user role.Address) (BeneficiaryView, error) {
	now := s.clock.Now()
	var out BeneficiaryView
	err := s.view(ctx, id, func(inst *Instance, _ Bank) error {
		out.Record, out.Exists = inst.Record(user)
		out.Claimable = inst.claimableNow(user, now)
		return nil
	})
	return out, err
}

// Claimable returns what user could claim now, through the emergency path
// once the gate is tripped.
func (s *Service) Claimable(ctx context.Context, id string, user role.Address) (Claimable, error) {
	now := s.clock.Now()
	var out Claimable
	err := s.view(ctx, id, func(inst *Instance, _ Bank) error {
		out = inst.claimableNow(user, now)
		return nil
	})
	return out, err
}

// Summary returns totals, liabilities and custody balances.
func (s *Service) Summary(ctx context.Context, id string) (Summary, error) {
	now := s.clock.Now()
	var out Summary
	err := s.view(ctx, id, func(inst *Instance, bank Bank) error {
		out = Summary{
			Instance:         inst.Clone(),
			Liability:        inst.Totals.Liability(),
			FundingLiability: inst.Totals.FundingLiability(),
			Elapsed:          inst.ElapsedFraction(now),
			Beneficiaries:    len(inst.records),
			Custody:          make(map[asset.ID]decimal.Decimal, 3),
		}
		held := []asset.ID{inst.DistributedAsset, asset.Native}
		if inst.Insured() {
			held = append(held, inst.FundingAsset)
		}
		for _, a := range held {
			bal, err := bank.BalanceOf(ctx, a, inst.Custody)
			if err != nil {
				return fmt.Errorf("reading custody balance of %s: %w", a, err)
			}
			out.Custody[a] = bal
		}
		return nil
	})
	return out, err
}

// SetAllocation sets one beneficiary's allocation.
func (s *Service) SetAllocation(ctx context.Context, id string, caller, user role.Address, amount decimal.Decimal) (AllocationChange, error) {
	var out AllocationChange
	err := s.update(ctx, id, caller, "set_allocation", func(op *operation) error {
		change, err := op.inst.SetAllocation(caller, user, amount)
		if err != nil {
			return err
		}
		out = change
		op.allocationChanged(change)
		return nil
	})
	return out, err
}

// SetAllocations applies several allocation writes atomically.
func (s *Service) SetAllocations(ctx context.Context, id string, caller role.Address, items []Allocation) ([]AllocationChange, error) {
	var out []AllocationChange
	err := s.update(ctx, id, caller, "set_allocations", func(op *operation) error {
		changes, err := op.inst.SetAllocations(caller, items)
		if err != nil {
			return err
		}
		out = changes
		for _, change := range changes {
			op.allocationChanged(change)
		}
		return nil
	})
	return out, err
}

// AddFunds deposits the caller's funding asset on an insured instance.
func (s *Service) AddFunds(ctx context.Context, id string, caller role.Address, amount decimal.Decimal) (Funding, error) {
	var out Funding
	err := s.update(ctx, id, caller, "add_funds", func(op *operation) error {
		funding, err := op.inst.AddFunds(ctx, op.bank, caller, amount)
		if err != nil {
			return err
		}
		out = funding
		op.emit(EventFundsAdded, caller, op.inst.FundingAsset, funding.Amount, map[string]string{
			"funded":      funding.Funded.String(),
			"entitlement": funding.Entitlement.String(),
		})
		return nil
	})
	return out, err
}

// Activate starts the schedule at start.
func (s *Service) Activate(ctx context.Context, id string, caller role.Address, start time.Time) (Activation, error) {
	var out Activation
	err := s.update(ctx, id, caller, "activate", func(op *operation) error {
		activation, err := op.inst.Activate(ctx, op.bank, caller, start, op.now)
		if err != nil {
			return err
		}
		out = activation
		op.emit(EventActivated, "", op.inst.DistributedAsset, activation.Total, map[string]string{
			"start_time": activation.StartTime.Format(time.RFC3339),
			"pulled":     activation.Pulled.String(),
		})
		return nil
	})
	return out, err
}

// Claim settles user's vested, unclaimed amount.
func (s *Service) Claim(ctx context.Context, id string, caller, user role.Address) (Settlement, error) {
	var out Settlement
	err := s.update(ctx, id, caller, "claim", func(op *operation) error {
		settlement, err := op.inst.Claim(ctx, op.bank, caller, user, op.now)
		if err != nil {
			return err
		}
		out = settlement
		op.settled(EventClaimed, settlement)
		return nil
	})
	return out, err
}

// ToggleDecision flips the caller's insured settlement decision.
func (s *Service) ToggleDecision(ctx context.Context, id string, caller role.Address) (bool, error) {
	var refund bool
	err := s.update(ctx, id, caller, "toggle_decision", func(op *operation) error {
		r, err := op.inst.ToggleDecision(caller)
		if err != nil {
			return err
		}
		refund = r
		op.emit(EventDecisionToggled, caller, "", decimal.Zero, map[string]string{
			"refund": strconv.FormatBool(r),
		})
		return nil
	})
	return refund, err
}

// EmergencyRelease trips the emergency gate.
func (s *Service) EmergencyRelease(ctx context.Context, id string, caller role.Address) error {
	err := s.update(ctx, id, caller, "emergency_release", func(op *operation) error {
		if err := op.inst.EmergencyRelease(caller); err != nil {
			return err
		}
		op.emit(EventEmergencyReleased, "", "", decimal.Zero, nil)
		return nil
	})
	if err == nil {
		s.logger.Warn("emergency release triggered", "instance_id", id, "owner", caller)
	}
	return err
}

// EmergencyClaim pays user's full remainder after an emergency release.
func (s *Service) EmergencyClaim(ctx context.Context, id string, caller, user role.Address) (Settlement, error) {
	var out Settlement
	err := s.update(ctx, id, caller, "emergency_claim", func(op *operation) error {
		settlement, err := op.inst.EmergencyClaim(ctx, op.bank, caller, user)
		if err != nil {
			return err
		}
		out = settlement
		op.settled(EventEmergencyClaimed, settlement)
		return nil
	})
	return out, err
}

// RecoverToken sweeps unowed holdings of an asset to the project wallet.
func (s *Service) RecoverToken(ctx context.Context, id string, caller role.Address, assetID asset.ID) (Recovery, error) {
	var out Recovery
	err := s.update(ctx, id, caller, "recover_token", func(op *operation) error {
		rec, err := op.inst.RecoverToken(ctx, op.bank, caller, assetID)
		if err != nil {
			return err
		}
		out = rec
		op.recovered(rec)
		return nil
	})
	return out, err
}

// RecoverNative sweeps native currency per the instance's native policy.
func (s *Service) RecoverNative(ctx context.Context, id string, caller role.Address) (Recovery, error) {
	var out Recovery
	err := s.update(ctx, id, caller, "recover_native", func(op *operation) error {
		rec, err := op.inst.RecoverNative(ctx, op.bank, caller)
		if err != nil {
			return err
		}
		out = rec
		op.recovered(rec)
		return nil
	})
	return out, err
}

// TransferProjectRole hands the project role to next.
func (s *Service) TransferProjectRole(ctx context.Context, id string, caller, next role.Address) error {
	return s.update(ctx, id, caller, "transfer_project_role", func(op *operation) error {
		prev, err := op.inst.Roles.TransferProject(caller, next)
		if err != nil {
			return err
		}
		op.emit(EventProjectRoleTransferred, "", "", decimal.Zero, map[string]string{
			"previous": prev.String(),
			"next":     next.String(),
		})
		return nil
	})
}

// TransferOwnership hands the owner role to next.
func (s *Service) TransferOwnership(ctx context.Context, id string, caller, next role.Address) error {
	return s.update(ctx, id, caller, "transfer_ownership", func(op *operation) error {
		prev, err := op.inst.Roles.TransferOwnership(caller, next)
		if err != nil {
			return err
		}
		op.emit(EventOwnershipTransferred, "", "", decimal.Zero, map[string]string{
			"previous": prev.String(),
			"next":     next.String(),
		})
		return nil
	})
}

// RenounceOwnership clears the owner role for good.
func (s *Service) RenounceOwnership(ctx context.Context, id string, caller role.Address) error {
	return s.update(ctx, id, caller, "renounce_ownership", func(op *operation) error {
		prev, err := op.inst.Roles.RenounceOwnership(caller)
		if err != nil {
			return err
		}
		op.emit(EventOwnershipTransferred, "", "", decimal.Zero, map[string]string{
			"previous": prev.String(),
			"next":     "",
		})
		return nil
	})
}

// claimableNow picks the emergency path once the gate is tripped.
func (in *Instance) claimableNow(user role.Address, now time.Time) Claimable {
	if in.Phase == PhaseEmergencyReleased {
		return in.EmergencyClaimableFor(user)
	}
	return in.ClaimableFor(user, now)
}

// operation is one atomic unit: the working instance and bank, the time it
// observes, and the events it will publish on commit.
type operation struct {
	inst   *Instance
	bank   Bank
	actor  role.Address
	now    time.Time
	ids    IDGenerator
	events []Event
}

func (op *operation) emit(t EventType, beneficiary role.Address, id asset.ID, amount decimal.Decimal, detail map[string]string) {
	op.events = append(op.events, Event{
		ID:          op.ids.NewID(),
		Type:        t,
		InstanceID:  op.inst.ID,
		Actor:       op.actor,
		Beneficiary: beneficiary,
		Asset:       id,
		Amount:      amount,
		Detail:      detail,
		OccurredAt:  op.now,
	})
}

func (op *operation) allocationChanged(change AllocationChange) {
	op.emit(EventAllocationChanged, change.Beneficiary, "", change.Current, map[string]string{
		"previous": change.Previous.String(),
	})
}

func (op *operation) settled(t EventType, s Settlement) {
	detail := map[string]string{"refund": strconv.FormatBool(s.Refund)}
	if s.Refund {
		detail["released"] = s.Released.String()
		op.emit(t, s.Beneficiary, op.inst.FundingAsset, s.Refunded, detail)
		return
	}
	if op.inst.Insured() {
		detail["forwarded"] = s.Forwarded.String()
	}
	op.emit(t, s.Beneficiary, op.inst.DistributedAsset, s.Paid, detail)
}

func (op *operation) recovered(r Recovery) {
	op.emit(EventRecovered, r.Recipient, r.Asset, r.Amount, map[string]string{
		"liability": r.Liability.String(),
	})
}

func (s *Service) view(ctx context.Context, id string, fn func(inst *Instance, bank Bank) error) error {
	if err := s.repo.View(ctx, id, fn); err != nil {
		return s.mapError(id, err)
	}
	return nil
}

// update runs fn as one atomic unit and publishes its events after commit.
func (s *Service) update(ctx context.Context, id string, caller role.Address, name string, fn func(op *operation) error) error {
	now := s.clock.Now().UTC()
	var events []Event
	err := s.repo.Update(ctx, id, func(inst *Instance, bank Bank) error {
		op := &operation{inst: inst, bank: bank, actor: caller, now: now, ids: s.ids}
		if err := fn(op); err != nil {
			return err
		}
		events = op.events
		return nil
	})
	if err != nil {
		err = s.mapError(id, err)
		s.logger.Debug("vesting operation rejected", "op", name, "instance_id", id, "caller", caller, "error", err)
		return err
	}

	s.logger.Info("vesting operation applied", "op", name, "instance_id", id, "caller", caller, "events", len(events))
	s.publish(ctx, events)
	return nil
}

func (s *Service) publish(ctx context.Context, events []Event) {
	if s.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("publishing vesting event", "type", ev.Type, "instance_id", ev.InstanceID, "error", err)
		}
	}
}

func (s *Service) mapError(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	return err
}
