package vesting

import (
	"sort"
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/shopspring/decimal"
)

// Variant selects the settlement model of an instance.
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantInsured  Variant = "insured"
)

// NativeRecipient decides who receives recovered native currency.
type NativeRecipient string

const (
	NativeToProject NativeRecipient = "project"
	NativeToOwner   NativeRecipient = "owner"
)

// Phase is the one-way lifecycle of an instance.
type Phase string

const (
	PhasePending           Phase = "pending"
	PhaseActivated         Phase = "activated"
	PhaseEmergencyReleased Phase = "emergency_released"
)

// Activated reports whether the instance left the pending phase.
func (p Phase) Activated() bool {
	return p == PhaseActivated || p == PhaseEmergencyReleased
}

// Advance returns the next phase or an error describing why the move is illegal.
func (p Phase) Advance(to Phase) (Phase, error) {
	switch {
	case p == PhasePending && to == PhaseActivated:
		return to, nil
	case p == PhaseActivated && to == PhaseEmergencyReleased:
		return to, nil
	case to == PhaseActivated:
		return p, ErrAlreadyActivated
	case to == PhaseEmergencyReleased && p == PhasePending:
		return p, ErrNotActivated
	case to == PhaseEmergencyReleased:
		return p, ErrEmergencyReleaseActive
	default:
		return p, ErrInvalidInput
	}
}

// Ratio converts funding units into project units as Num/Den.
type Ratio struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// Valid reports whether both terms are positive.
func (r Ratio) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Of returns floor(v * Num / Den).
func (r Ratio) Of(v decimal.Decimal) decimal.Decimal {
	return asset.MulDiv(v, r.Num, r.Den)
}

// BeneficiaryRecord is one beneficiary's entitlement and settlement progress.
// Funding fields are only used by the insured variant.
type BeneficiaryRecord struct {
	Beneficiary       role.Address    `json:"beneficiary"`
	Entitlement       decimal.Decimal `json:"entitlement"`
	Claimed           decimal.Decimal `json:"claimed"`
	FundingAllocation decimal.Decimal `json:"funding_allocation"`
	Funded            decimal.Decimal `json:"funded"`
	FundingClaimed    decimal.Decimal `json:"funding_claimed"`
	Refund            bool            `json:"refund"`
}

// Totals are sums over every BeneficiaryRecord of an instance.
type Totals struct {
	Entitlement       decimal.Decimal `json:"entitlement"`
	Claimed           decimal.Decimal `json:"claimed"`
	FundingAllocation decimal.Decimal `json:"funding_allocation"`
	Funded            decimal.Decimal `json:"funded"`
	FundingClaimed    decimal.Decimal `json:"funding_claimed"`
}

// Liability returns project units still owed to beneficiaries.
func (t Totals) Liability() decimal.Decimal {
	return asset.SubFloor(t.Entitlement, t.Claimed)
}

// FundingLiability returns funding units still held on behalf of beneficiaries.
func (t Totals) FundingLiability() decimal.Decimal {
	return asset.SubFloor(t.Funded, t.FundingClaimed)
}

// Instance is one deployed vesting schedule and its ledger.
type Instance struct {
	ID               string          `json:"id"`
	Variant          Variant         `json:"variant"`
	Roles            role.Roles      `json:"roles"`
	Custody          role.Address    `json:"custody"`
	Phase            Phase           `json:"phase"`
	StartTime        time.Time       `json:"start_time,omitzero"`
	Duration         time.Duration   `json:"duration"`
	MaxLeadTime      time.Duration   `json:"max_lead_time"`
	DistributedAsset asset.ID        `json:"distributed_asset"`
	FundingAsset     asset.ID        `json:"funding_asset,omitempty"`
	Ratio            Ratio           `json:"ratio"`
	NativeRecipient  NativeRecipient `json:"native_recipient"`
	Totals           Totals          `json:"totals"`
	CreatedAt        time.Time       `json:"created_at"`

	records map[role.Address]*BeneficiaryRecord
	dirty   map[role.Address]struct{}
}

// Insured reports whether the instance runs the dual-asset variant.
func (in *Instance) Insured() bool {
	return in.Variant == VariantInsured
}

// Record returns a copy of the beneficiary's record and whether one exists.
func (in *Instance) Record(user role.Address) (BeneficiaryRecord, bool) {
	rec, ok := in.records[user]
	if !ok {
		return BeneficiaryRecord{Beneficiary: user}, false
	}
	return *rec, true
}

// Records returns copies of every record ordered by beneficiary.
func (in *Instance) Records() []BeneficiaryRecord {
	out := make([]BeneficiaryRecord, 0, len(in.records))
	for _, rec := range in.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Beneficiary < out[j].Beneficiary })
	return out
}

// Hydrate loads stored records without marking them dirty.
func (in *Instance) Hydrate(records ...BeneficiaryRecord) {
	if in.records == nil {
		in.records = make(map[role.Address]*BeneficiaryRecord, len(records))
	}
	for _, rec := range records {
		rec := rec
		in.records[rec.Beneficiary] = &rec
	}
}

// Dirty returns copies of records written since load, ordered by beneficiary.
func (in *Instance) Dirty() []BeneficiaryRecord {
	out := make([]BeneficiaryRecord, 0, len(in.dirty))
	for addr := range in.dirty {
		out = append(out, *in.records[addr])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Beneficiary < out[j].Beneficiary })
	return out
}

// Clone returns a deep copy with a clean dirty set.
func (in *Instance) Clone() *Instance {
	c := *in
	c.records = make(map[role.Address]*BeneficiaryRecord, len(in.records))
	for addr, rec := range in.records {
		cp := *rec
		c.records[addr] = &cp
	}
	c.dirty = nil
	return &c
}

// writable returns the record for user, creating a zero record on first write.
func (in *Instance) writable(user role.Address) *BeneficiaryRecord {
	if in.records == nil {
		in.records = make(map[role.Address]*BeneficiaryRecord)
	}
	rec, ok := in.records[user]
	if !ok {
		rec = &BeneficiaryRecord{Beneficiary: user}
		in.records[user] = rec
	}
	if in.dirty == nil {
		in.dirty = make(map[role.Address]struct{})
	}
	in.dirty[user] = struct{}{}
	return rec
}

// Header returns a copy of the instance without beneficiary records.
func (in *Instance) Header() Instance {
	c := *in
	c.records = nil
	c.dirty = nil
	return c
}
