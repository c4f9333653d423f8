package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `vestline runs linear vesting schedules: a project allocates a distributed asset to beneficiaries and it unlocks linearly from a start time over a fixed duration.

Core concepts:
- Schedule: one vesting instance with an owner (admin, renounceable) and a project (operations).
- Phase: pending -> activated -> emergency_released. Allocations are only writable while pending.
- Custody: every schedule holds assets under its own address (custody field). Approve that address before activate or add_funds.
- Amounts are whole-unit base-10 strings.

Standard workflow:
1) create_schedule (caller becomes owner).
2) set_allocation as the project.
3) asset_approve the custody address for the distributed asset, then activate with a start_time.
4) Beneficiaries call claim whenever they like; claimable shows what is available.

Insured schedules: allocations are funding caps. Beneficiaries add_funds in the funding asset, and on each claim either receive project tokens (funding forwarded to the project) or, after toggle_decision, get their funding back.

Docs:
- vestline://docs/index
- vestline://docs/concepts
- vestline://docs/workflows/standard
- vestline://docs/workflows/insured
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "vestline://docs/index",
		Name:        "docs_index",
		Title:       "vestline docs index",
		Description: "Entry point: which doc to read for which task.",
		Content: `# vestline: Agent Docs Index

## Quick start

1. ` + "`list_schedules`" + ` / ` + "`get_schedule`" + ` to orient.
2. ` + "`get_beneficiary`" + ` or ` + "`claimable`" + ` before claiming.
3. ` + "`claim`" + ` settles everything vested so far; calling it again in the same second returns NOTHING_TO_CLAIM.

## Docs

- ` + "`vestline://docs/concepts`" + ` - roles, phases, amounts and invariants.
- ` + "`vestline://docs/workflows/standard`" + ` - allocate, activate, claim.
- ` + "`vestline://docs/workflows/insured`" + ` - funding, decisions and refunds.

## Errors

Tool errors carry a stable ` + "`code`" + ` (e.g. UNAUTHORIZED, ALREADY_ACTIVATED, NOTHING_TO_CLAIM) and often a ` + "`recovery_hint`" + `.
A failed call never leaves partial state behind.
`,
	},
	{
		URI:         "vestline://docs/concepts",
		Name:        "docs_concepts",
		Title:       "Concepts and invariants",
		Description: "Roles, phases, linear vesting math and recovery rules.",
		Content: `# Concepts and invariants

## Roles

- **Owner**: emergency release, recovery, ownership transfer. Renouncing is permanent.
- **Project**: allocations, activation, project role transfer. Receives recovered surplus and forwarded funding.

The two roles are independent; holding one grants nothing from the other.

## Phases

` + "`pending`" + ` -> ` + "`activated`" + ` -> ` + "`emergency_released`" + `. Transitions are one way.

## Vesting math

- elapsed = clamp((now - start) / duration, 0, 1), in whole seconds.
- claimable = floor(entitlement * elapsed) - claimed.
- Over the full duration a beneficiary receives exactly their entitlement, however often they claim.

## Custody and liability

- liability = total entitlement - total claimed.
- ` + "`recover_token`" + ` only sends what custody holds above liability. Unrelated assets are swept whole.
- After an emergency release every beneficiary can ` + "`emergency_claim`" + ` their full remainder.
`,
	},
	{
		URI:         "vestline://docs/workflows/standard",
		Name:        "docs_workflow_standard",
		Title:       "Standard schedule workflow",
		Description: "Create, allocate, fund, activate and claim a standard schedule.",
		Content: `# Standard schedule

1. ` + "`create_schedule`" + ` {project, distributed_asset, duration?}
2. As project: ` + "`set_allocation`" + ` {schedule_id, beneficiary, amount} or {schedule_id, allocations: [...]}.
3. As project: ` + "`asset_approve`" + ` {asset: distributed_asset, spender: custody, amount: total}.
4. As project: ` + "`activate`" + ` {schedule_id, start_time}. Only the shortfall between total entitlement and custody is pulled.
5. As beneficiary (or project on their behalf): ` + "`claim`" + ` {schedule_id, beneficiary?}.

start_time may not be in the past nor further ahead than the schedule's max lead time.
`,
	},
	{
		URI:         "vestline://docs/workflows/insured",
		Name:        "docs_workflow_insured",
		Title:       "Insured schedule workflow",
		Description: "Funding caps, conversion ratio, token vs refund decisions.",
		Content: `# Insured schedule

1. ` + "`create_schedule`" + ` {variant: insured, funding_asset, ratio_num, ratio_den, ...}
2. As project: ` + "`set_allocation`" + ` sets each beneficiary's funding cap.
3. As beneficiary: ` + "`asset_approve`" + ` the custody address for the funding asset, then ` + "`add_funds`" + `.
   Entitlement becomes floor(funded * ratio_num / ratio_den).
4. As project: ` + "`activate`" + `.
5. On every ` + "`claim`" + `, the matured funding slice is settled by the beneficiary's current decision:
   - token (default): project tokens to the beneficiary, funding forwarded to the project.
   - refund: the funding slice goes back to the beneficiary; the matching project tokens are released.
6. ` + "`toggle_decision`" + ` flips the decision for future claims only.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
