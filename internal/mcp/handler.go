package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/shopspring/decimal"
)

// VestingService defines vesting operations needed by MCP.
type VestingService interface {
	Create(ctx context.Context, req vesting.CreateRequest) (*vesting.Instance, error)
	Get(ctx context.Context, id string) (*vesting.Instance, error)
	List(ctx context.Context) ([]vesting.Instance, error)
	Beneficiary(ctx context.Context, id string, user role.Address) (vesting.BeneficiaryView, error)
	Claimable(ctx context.Context, id string, user role.Address) (vesting.Claimable, error)
	Summary(ctx context.Context, id string) (vesting.Summary, error)
	SetAllocation(ctx context.Context, id string, caller, user role.Address, amount decimal.Decimal) (vesting.AllocationChange, error)
	SetAllocations(ctx context.Context, id string, caller role.Address, items []vesting.Allocation) ([]vesting.AllocationChange, error)
	AddFunds(ctx context.Context, id string, caller role.Address, amount decimal.Decimal) (vesting.Funding, error)
	Activate(ctx context.Context, id string, caller role.Address, start time.Time) (vesting.Activation, error)
	Claim(ctx context.Context, id string, caller, user role.Address) (vesting.Settlement, error)
	ToggleDecision(ctx context.Context, id string, caller role.Address) (bool, error)
	EmergencyRelease(ctx context.Context, id string, caller role.Address) error
	EmergencyClaim(ctx context.Context, id string, caller, user role.Address) (vesting.Settlement, error)
	RecoverToken(ctx context.Context, id string, caller role.Address, assetID asset.ID) (vesting.Recovery, error)
	RecoverNative(ctx context.Context, id string, caller role.Address) (vesting.Recovery, error)
	TransferProjectRole(ctx context.Context, id string, caller, next role.Address) error
	TransferOwnership(ctx context.Context, id string, caller, next role.Address) error
	RenounceOwnership(ctx context.Context, id string, caller role.Address) error
}

// AssetService defines custody operations needed by MCP.
type AssetService interface {
	Balance(ctx context.Context, id asset.ID, holder role.Address) (decimal.Decimal, error)
	Approve(ctx context.Context, caller role.Address, id asset.ID, spender role.Address, amount decimal.Decimal) error
	Transfer(ctx context.Context, caller role.Address, id asset.ID, to role.Address, amount decimal.Decimal) error
	Deposit(ctx context.Context, id asset.ID, to role.Address, amount decimal.Decimal) error
}

// Handler dispatches MCP commands.
type Handler struct {
	vesting VestingService
	assets  AssetService
}

// NewHandler creates a new MCP handler.
func NewHandler(vestingSvc VestingService, assetSvc AssetService) *Handler {
	return &Handler{vesting: vestingSvc, assets: assetSvc}
}

// Handle dispatches a tool call on behalf of caller.
func (h *Handler) Handle(ctx context.Context, caller role.Address, method string, params json.RawMessage) (any, error) {
	result, err := h.dispatch(ctx, caller, method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (h *Handler) dispatch(ctx context.Context, caller role.Address, method string, params json.RawMessage) (any, error) {
	switch method {
	case "create_schedule":
		var req CreateScheduleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		create, err := createRequest(caller, req)
		if err != nil {
			return nil, err
		}
		inst, err := h.vesting.Create(ctx, create)
		if err != nil {
			return nil, err
		}
		return scheduleResponse(inst), nil
	case "get_schedule":
		var req ScheduleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		summary, err := h.vesting.Summary(ctx, req.ScheduleID)
		if err != nil {
			return nil, err
		}
		return summaryResponse(summary), nil
	case "list_schedules":
		list, err := h.vesting.List(ctx)
		if err != nil {
			return nil, err
		}
		resp := ListSchedulesResponse{Schedules: make([]ScheduleResponse, 0, len(list))}
		for i := range list {
			resp.Schedules = append(resp.Schedules, scheduleResponse(&list[i]))
		}
		return resp, nil
	case "get_beneficiary":
		var req BeneficiaryParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.vesting.Beneficiary(ctx, req.ScheduleID, orCaller(req.Beneficiary, caller))
	case "claimable":
		var req BeneficiaryParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.vesting.Claimable(ctx, req.ScheduleID, orCaller(req.Beneficiary, caller))
	case "set_allocation":
		var req SetAllocationParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.setAllocation(ctx, caller, req)
	case "add_funds":
		var req AddFundsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		return h.vesting.AddFunds(ctx, req.ScheduleID, caller, amount)
	case "activate":
		var req ActivateParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		start, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			return nil, invalidParams(fmt.Errorf("start_time: %w", err))
		}
		return h.vesting.Activate(ctx, req.ScheduleID, caller, start)
	case "claim", "emergency_claim":
		var req BeneficiaryParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		user := orCaller(req.Beneficiary, caller)
		if method == "emergency_claim" {
			return h.vesting.EmergencyClaim(ctx, req.ScheduleID, caller, user)
		}
		return h.vesting.Claim(ctx, req.ScheduleID, caller, user)
	case "toggle_decision":
		var req ScheduleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		refund, err := h.vesting.ToggleDecision(ctx, req.ScheduleID, caller)
		if err != nil {
			return nil, err
		}
		return DecisionResponse{Refund: refund}, nil
	case "emergency_release":
		var req ScheduleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.vesting.EmergencyRelease(ctx, req.ScheduleID, caller); err != nil {
			return nil, err
		}
		return StatusResponse{Status: "emergency_released"}, nil
	case "recover_token":
		var req RecoverTokenParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.vesting.RecoverToken(ctx, req.ScheduleID, caller, asset.ID(req.Asset))
	case "recover_native":
		var req ScheduleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.vesting.RecoverNative(ctx, req.ScheduleID, caller)
	case "transfer_project_role":
		var req TransferRoleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.vesting.TransferProjectRole(ctx, req.ScheduleID, caller, role.Address(req.To)); err != nil {
			return nil, err
		}
		return StatusResponse{Status: "transferred"}, nil
	case "transfer_ownership":
		var req TransferRoleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.vesting.TransferOwnership(ctx, req.ScheduleID, caller, role.Address(req.To)); err != nil {
			return nil, err
		}
		return StatusResponse{Status: "transferred"}, nil
	case "renounce_ownership":
		var req ScheduleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.vesting.RenounceOwnership(ctx, req.ScheduleID, caller); err != nil {
			return nil, err
		}
		return StatusResponse{Status: "renounced"}, nil
	case "asset_balance":
		var req AssetBalanceParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		holder := orCaller(req.Holder, caller)
		bal, err := h.assets.Balance(ctx, asset.ID(req.Asset), holder)
		if err != nil {
			return nil, err
		}
		return BalanceResponse{Asset: req.Asset, Holder: holder.String(), Balance: bal}, nil
	case "asset_approve":
		var req AssetApproveParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		if err := h.assets.Approve(ctx, caller, asset.ID(req.Asset), role.Address(req.Spender), amount); err != nil {
			return nil, err
		}
		return StatusResponse{Status: "approved"}, nil
	case "asset_transfer":
		var req AssetMoveParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		if err := h.assets.Transfer(ctx, caller, asset.ID(req.Asset), role.Address(req.To), amount); err != nil {
			return nil, err
		}
		return StatusResponse{Status: "transferred"}, nil
	case "asset_deposit":
		var req AssetMoveParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		to := orCaller(req.To, caller)
		if err := h.assets.Deposit(ctx, asset.ID(req.Asset), to, amount); err != nil {
			return nil, err
		}
		bal, err := h.assets.Balance(ctx, asset.ID(req.Asset), to)
		if err != nil {
			return nil, err
		}
		return BalanceResponse{Asset: req.Asset, Holder: to.String(), Balance: bal}, nil
	default:
		return nil, &APIError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method %q", method)}
	}
}

func (h *Handler) setAllocation(ctx context.Context, caller role.Address, req SetAllocationParams) (AllocationResponse, error) {
	if len(req.Allocations) == 0 {
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return AllocationResponse{}, err
		}
		change, err := h.vesting.SetAllocation(ctx, req.ScheduleID, caller, role.Address(req.Beneficiary), amount)
		if err != nil {
			return AllocationResponse{}, err
		}
		return AllocationResponse{Changes: []vesting.AllocationChange{change}}, nil
	}
	if req.Beneficiary != "" || req.Amount != "" {
		return AllocationResponse{}, invalidParams(errors.New("use either beneficiary/amount or allocations, not both"))
	}
	items := make([]vesting.Allocation, 0, len(req.Allocations))
	for i, a := range req.Allocations {
		amount, err := parseAmount(a.Amount)
		if err != nil {
			return AllocationResponse{}, fmt.Errorf("allocations[%d]: %w", i, err)
		}
		items = append(items, vesting.Allocation{Beneficiary: role.Address(a.Beneficiary), Amount: amount})
	}
	changes, err := h.vesting.SetAllocations(ctx, req.ScheduleID, caller, items)
	if err != nil {
		return AllocationResponse{}, err
	}
	return AllocationResponse{Changes: changes}, nil
}

func createRequest(caller role.Address, p CreateScheduleParams) (vesting.CreateRequest, error) {
	req := vesting.CreateRequest{
		Caller:           caller,
		Project:          role.Address(p.Project),
		Variant:          vesting.Variant(strings.ToLower(p.Variant)),
		DistributedAsset: asset.ID(p.DistributedAsset),
		FundingAsset:     asset.ID(p.FundingAsset),
		Ratio:            vesting.Ratio{Num: p.RatioNum, Den: p.RatioDen},
		NativeRecipient:  vesting.NativeRecipient(strings.ToLower(p.NativeRecipient)),
	}
	if req.Variant == "" {
		req.Variant = vesting.VariantStandard
	}
	var err error
	if req.Duration, err = parseDuration("duration", p.Duration); err != nil {
		return req, err
	}
	if req.MaxLeadTime, err = parseDuration("max_lead_time", p.MaxLeadTime); err != nil {
		return req, err
	}
	return req, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, invalidParams(fmt.Errorf("%s: %w", field, err))
	}
	return d, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, invalidParams(errors.New("amount is required"))
	}
	return asset.ParseAmount(s)
}

func orCaller(s string, caller role.Address) role.Address {
	if strings.TrimSpace(s) == "" {
		return caller
	}
	return role.Address(s)
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return invalidParams(err)
	}
	return nil
}

func mapError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if mapped := MapError(err); mapped != nil {
		return mapped
	}
	return err
}
