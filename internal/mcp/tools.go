package mcp

// ToolDefinition describes one tool exposed over MCP and JSON-RPC.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	ReadOnly    bool           `json:"-"`
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var (
	scheduleIDProp  = stringProp("Vesting schedule ID")
	amountProp      = stringProp("Whole-unit amount as a base-10 string, e.g. \"1000\"")
	beneficiaryProp = stringProp("Beneficiary address (defaults to the caller)")
)

func scheduleOnly() map[string]any {
	return objectSchema(map[string]any{"schedule_id": scheduleIDProp}, "schedule_id")
}

func scheduleAndBeneficiary() map[string]any {
	return objectSchema(map[string]any{
		"schedule_id": scheduleIDProp,
		"beneficiary": beneficiaryProp,
	}, "schedule_id")
}

func transferSchema() map[string]any {
	return objectSchema(map[string]any{
		"schedule_id": scheduleIDProp,
		"to":          stringProp("Address of the new holder"),
	}, "schedule_id", "to")
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Schedules
		{
			Name:        "create_schedule",
			Description: "Create a pending vesting schedule. The caller becomes its owner.",
			InputSchema: objectSchema(map[string]any{
				"project":           stringProp("Project wallet: manages allocations, funds and activates the schedule"),
				"variant":           map[string]any{"type": "string", "enum": []string{"standard", "insured"}, "description": "Settlement model (default standard)"},
				"distributed_asset": stringProp("Asset vested to beneficiaries"),
				"funding_asset":     stringProp("Asset beneficiaries fund with (insured only)"),
				"ratio_num":         map[string]any{"type": "integer", "description": "Project units per ratio_den funding units (insured only)"},
				"ratio_den":         map[string]any{"type": "integer", "description": "Funding units per ratio_num project units (insured only)"},
				"native_recipient":  map[string]any{"type": "string", "enum": []string{"project", "owner"}, "description": "Who receives recovered native currency (default project)"},
				"duration":          stringProp("Vesting duration as a Go duration, e.g. \"17520h\" (default 730 days)"),
				"max_lead_time":     stringProp("Longest allowed gap between activation and start, e.g. \"2160h\""),
			}, "project", "distributed_asset"),
		},
		{
			Name:        "get_schedule",
			Description: "Get a schedule with totals, outstanding liability, elapsed fraction and custody balances",
			InputSchema: scheduleOnly(),
			ReadOnly:    true,
		},
		{
			Name:        "list_schedules",
			Description: "List all vesting schedules",
			InputSchema: objectSchema(map[string]any{}),
			ReadOnly:    true,
		},

		// Beneficiaries
		{
			Name:        "get_beneficiary",
			Description: "Get a beneficiary's record and what they could claim now",
			InputSchema: scheduleAndBeneficiary(),
			ReadOnly:    true,
		},
		{
			Name:        "claimable",
			Description: "Get the amount a beneficiary could claim now",
			InputSchema: scheduleAndBeneficiary(),
			ReadOnly:    true,
		},
		{
			Name:        "set_allocation",
			Description: "Set one or more allocations before activation (project only). Insured schedules allocate the funding cap.",
			InputSchema: objectSchema(map[string]any{
				"schedule_id": scheduleIDProp,
				"beneficiary": stringProp("Beneficiary address"),
				"amount":      amountProp,
				"allocations": map[string]any{
					"type":        "array",
					"description": "Batch of allocations applied atomically (instead of beneficiary/amount)",
					"items": objectSchema(map[string]any{
						"beneficiary": stringProp("Beneficiary address"),
						"amount":      amountProp,
					}, "beneficiary", "amount"),
				},
			}, "schedule_id"),
		},
		{
			Name:        "add_funds",
			Description: "Fund the caller's insured allocation from their funding asset balance (needs an allowance for the custody address)",
			InputSchema: objectSchema(map[string]any{
				"schedule_id": scheduleIDProp,
				"amount":      amountProp,
			}, "schedule_id", "amount"),
		},
		{
			Name:        "activate",
			Description: "Lock allocations, fix the start time and pull the shortfall from the project wallet (project only)",
			InputSchema: objectSchema(map[string]any{
				"schedule_id": scheduleIDProp,
				"start_time":  stringProp("Vesting start time (RFC3339), not in the past"),
			}, "schedule_id", "start_time"),
		},

		// Claims
		{
			Name:        "claim",
			Description: "Settle everything vested so far for a beneficiary (caller must be the beneficiary or the project)",
			InputSchema: scheduleAndBeneficiary(),
		},
		{
			Name:        "toggle_decision",
			Description: "Flip the caller's insured settlement decision between project token and refund",
			InputSchema: scheduleOnly(),
		},
		{
			Name:        "emergency_release",
			Description: "Trip the emergency gate so every beneficiary can claim their full remainder (owner only)",
			InputSchema: scheduleOnly(),
		},
		{
			Name:        "emergency_claim",
			Description: "Claim the full remainder after an emergency release",
			InputSchema: scheduleAndBeneficiary(),
		},

		// Recovery
		{
			Name:        "recover_token",
			Description: "Send custody holdings above outstanding liability to the project wallet (owner only)",
			InputSchema: objectSchema(map[string]any{
				"schedule_id": scheduleIDProp,
				"asset":       stringProp("Asset to recover"),
			}, "schedule_id", "asset"),
		},
		{
			Name:        "recover_native",
			Description: "Send the custody's native balance to the configured recipient (owner only)",
			InputSchema: scheduleOnly(),
		},

		// Roles
		{
			Name:        "transfer_project_role",
			Description: "Hand the project role to another address (project only)",
			InputSchema: transferSchema(),
		},
		{
			Name:        "transfer_ownership",
			Description: "Hand the owner role to another address (owner only)",
			InputSchema: transferSchema(),
		},
		{
			Name:        "renounce_ownership",
			Description: "Give up the owner role for good. Emergency release and recovery become unavailable.",
			InputSchema: scheduleOnly(),
		},

		// Assets
		{
			Name:        "asset_balance",
			Description: "Get an asset balance (defaults to the caller)",
			InputSchema: objectSchema(map[string]any{
				"asset":  stringProp("Asset ID"),
				"holder": stringProp("Holder address (defaults to the caller)"),
			}, "asset"),
			ReadOnly: true,
		},
		{
			Name:        "asset_approve",
			Description: "Allow a spender (usually a schedule's custody address) to pull up to amount from the caller",
			InputSchema: objectSchema(map[string]any{
				"asset":   stringProp("Asset ID"),
				"spender": stringProp("Spender address"),
				"amount":  amountProp,
			}, "asset", "spender", "amount"),
		},
		{
			Name:        "asset_transfer",
			Description: "Transfer an asset from the caller to another holder",
			InputSchema: objectSchema(map[string]any{
				"asset":  stringProp("Asset ID"),
				"to":     stringProp("Recipient address"),
				"amount": amountProp,
			}, "asset", "to", "amount"),
		},
		{
			Name:        "asset_deposit",
			Description: "Credit new units of an asset (only when the faucet is enabled)",
			InputSchema: objectSchema(map[string]any{
				"asset":  stringProp("Asset ID"),
				"to":     stringProp("Recipient (defaults to the caller)"),
				"amount": amountProp,
			}, "asset", "amount"),
		},
	}
}
