package mcp

import (
	"time"

	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/shopspring/decimal"
)

// Tool params

type CreateScheduleParams struct {
	Project          string `json:"project"`
	Variant          string `json:"variant,omitempty"`
	DistributedAsset string `json:"distributed_asset"`
	FundingAsset     string `json:"funding_asset,omitempty"`
	RatioNum         int64  `json:"ratio_num,omitempty"`
	RatioDen         int64  `json:"ratio_den,omitempty"`
	NativeRecipient  string `json:"native_recipient,omitempty"`
	Duration         string `json:"duration,omitempty"`
	MaxLeadTime      string `json:"max_lead_time,omitempty"`
}

type ScheduleParams struct {
	ScheduleID string `json:"schedule_id"`
}

type BeneficiaryParams struct {
	ScheduleID  string `json:"schedule_id"`
	Beneficiary string `json:"beneficiary,omitempty"`
}

type AllocationParam struct {
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"`
}

type SetAllocationParams struct {
	ScheduleID  string            `json:"schedule_id"`
	Beneficiary string            `json:"beneficiary,omitempty"`
	Amount      string            `json:"amount,omitempty"`
	Allocations []AllocationParam `json:"allocations,omitempty"`
}

type AddFundsParams struct {
	ScheduleID string `json:"schedule_id"`
	Amount     string `json:"amount"`
}

type ActivateParams struct {
	ScheduleID string `json:"schedule_id"`
	StartTime  string `json:"start_time"`
}

type RecoverTokenParams struct {
	ScheduleID string `json:"schedule_id"`
	Asset      string `json:"asset"`
}

type TransferRoleParams struct {
	ScheduleID string `json:"schedule_id"`
	To         string `json:"to"`
}

type AssetBalanceParams struct {
	Asset  string `json:"asset"`
	Holder string `json:"holder,omitempty"`
}

type AssetApproveParams struct {
	Asset   string `json:"asset"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type AssetMoveParams struct {
	Asset  string `json:"asset"`
	To     string `json:"to,omitempty"`
	Amount string `json:"amount"`
}

// Responses

type ScheduleResponse struct {
	ID                 string         `json:"id"`
	Variant            string         `json:"variant"`
	Owner              string         `json:"owner"`
	Project            string         `json:"project"`
	Custody            string         `json:"custody"`
	Phase              string         `json:"phase"`
	StartTime          *time.Time     `json:"start_time,omitempty"`
	DurationSeconds    int64          `json:"duration_seconds"`
	MaxLeadTimeSeconds int64          `json:"max_lead_time_seconds"`
	DistributedAsset   string         `json:"distributed_asset"`
	FundingAsset       string         `json:"funding_asset,omitempty"`
	Ratio              vesting.Ratio  `json:"ratio"`
	NativeRecipient    string         `json:"native_recipient"`
	Totals             vesting.Totals `json:"totals"`
	CreatedAt          time.Time      `json:"created_at"`
}

type ListSchedulesResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
}

type SummaryResponse struct {
	Schedule         ScheduleResponse           `json:"schedule"`
	Liability        decimal.Decimal            `json:"liability"`
	FundingLiability decimal.Decimal            `json:"funding_liability"`
	Elapsed          vesting.Fraction           `json:"elapsed"`
	Beneficiaries    int                        `json:"beneficiaries"`
	Custody          map[string]decimal.Decimal `json:"custody"`
}

type AllocationResponse struct {
	Changes []vesting.AllocationChange `json:"changes"`
}

type DecisionResponse struct {
	Refund bool `json:"refund"`
}

type BalanceResponse struct {
	Asset   string          `json:"asset"`
	Holder  string          `json:"holder"`
	Balance decimal.Decimal `json:"balance"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

func scheduleResponse(inst *vesting.Instance) ScheduleResponse {
	resp := ScheduleResponse{
		ID:                 inst.ID,
		Variant:            string(inst.Variant),
		Owner:              inst.Roles.Owner.String(),
		Project:            inst.Roles.Project.String(),
		Custody:            inst.Custody.String(),
		Phase:              string(inst.Phase),
		DurationSeconds:    int64(inst.Duration / time.Second),
		MaxLeadTimeSeconds: int64(inst.MaxLeadTime / time.Second),
		DistributedAsset:   string(inst.DistributedAsset),
		FundingAsset:       string(inst.FundingAsset),
		Ratio:              inst.Ratio,
		NativeRecipient:    string(inst.NativeRecipient),
		Totals:             inst.Totals,
		CreatedAt:          inst.CreatedAt,
	}
	if !inst.StartTime.IsZero() {
		start := inst.StartTime
		resp.StartTime = &start
	}
	return resp
}

func summaryResponse(s vesting.Summary) SummaryResponse {
	custody := make(map[string]decimal.Decimal, len(s.Custody))
	for id, bal := range s.Custody {
		custody[string(id)] = bal
	}
	return SummaryResponse{
		Schedule:         scheduleResponse(s.Instance),
		Liability:        s.Liability,
		FundingLiability: s.FundingLiability,
		Elapsed:          s.Elapsed,
		Beneficiaries:    s.Beneficiaries,
		Custody:          custody,
	}
}
