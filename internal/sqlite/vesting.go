package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/vestline/internal/domain/asset"
	"github.com/rpggio/vestline/internal/domain/role"
	"github.com/rpggio/vestline/internal/domain/vesting"
	"github.com/rpggio/vestline/internal/repository"
)

// VestingRepository implements vesting.Repository for SQLite
type VestingRepository struct {
	db *DB
}

// NewVestingRepository creates a new VestingRepository
func NewVestingRepository(db *DB) *VestingRepository {
	return &VestingRepository{db: db}
}

const instanceColumns = `
	id, variant, owner, project, custody, phase, start_time, duration_seconds,
	max_lead_seconds, distributed_asset, funding_asset, ratio_num, ratio_den,
	native_recipient, total_entitlement, total_claimed, total_funding_allocation,
	total_funded, total_funding_claimed, created_at
`

// Create inserts a new instance and any records it already holds
func (r *VestingRepository) Create(ctx context.Context, inst *vesting.Instance) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vesting_instances (`+instanceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			inst.ID,
			string(inst.Variant),
			string(inst.Roles.Owner),
			string(inst.Roles.Project),
			string(inst.Custody),
			string(inst.Phase),
			unixOrNull(inst.StartTime),
			int64(inst.Duration/time.Second),
			int64(inst.MaxLeadTime/time.Second),
			string(inst.DistributedAsset),
			string(inst.FundingAsset),
			inst.Ratio.Num,
			inst.Ratio.Den,
			string(inst.NativeRecipient),
			inst.Totals.Entitlement.String(),
			inst.Totals.Claimed.String(),
			inst.Totals.FundingAllocation.String(),
			inst.Totals.Funded.String(),
			inst.Totals.FundingClaimed.String(),
			inst.CreatedAt.Unix(),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: instance %s exists", repository.ErrConflict, inst.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to create instance: %w", err)
		}
		return saveRecords(ctx, tx, inst.ID, inst.Records())
	})
}

// List returns every instance without beneficiary records, oldest first
func (r *VestingRepository) List(ctx context.Context) ([]vesting.Instance, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+instanceColumns+` FROM vesting_instances ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	var out []vesting.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instances: %w", err)
	}
	return out, nil
}

// View hands fn a loaded instance and a bank inside a transaction that is never committed
func (r *VestingRepository) View(ctx context.Context, id string, fn func(inst *vesting.Instance, bank vesting.Bank) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inst, err := loadInstance(ctx, tx, id)
	if err != nil {
		return err
	}
	return fn(inst, asset.NewBank(book{q: tx}))
}

// Update loads an instance, runs fn, and writes back the instance and the
// records fn touched in the same transaction as every bank movement
func (r *VestingRepository) Update(ctx context.Context, id string, fn func(inst *vesting.Instance, bank vesting.Bank) error) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		inst, err := loadInstance(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(inst, asset.NewBank(book{q: tx})); err != nil {
			return err
		}
		if err := saveInstance(ctx, tx, inst); err != nil {
			return err
		}
		return saveRecords(ctx, tx, inst.ID, inst.Dirty())
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (*vesting.Instance, error) {
	var (
		inst                                            vesting.Instance
		variant, owner, project, custody, phase, native string
		distributed, funding                            string
		start                                           sql.NullInt64
		durationSec, leadSec, createdAt                 int64
	)
	err := row.Scan(
		&inst.ID,
		&variant,
		&owner,
		&project,
		&custody,
		&phase,
		&start,
		&durationSec,
		&leadSec,
		&distributed,
		&funding,
		&inst.Ratio.Num,
		&inst.Ratio.Den,
		&native,
		&inst.Totals.Entitlement,
		&inst.Totals.Claimed,
		&inst.Totals.FundingAllocation,
		&inst.Totals.Funded,
		&inst.Totals.FundingClaimed,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	inst.Variant = vesting.Variant(variant)
	inst.Roles = role.Roles{Owner: role.Address(owner), Project: role.Address(project)}
	inst.Custody = role.Address(custody)
	inst.Phase = vesting.Phase(phase)
	if start.Valid {
		inst.StartTime = time.Unix(start.Int64, 0).UTC()
	}
	inst.Duration = time.Duration(durationSec) * time.Second
	inst.MaxLeadTime = time.Duration(leadSec) * time.Second
	inst.DistributedAsset = asset.ID(distributed)
	inst.FundingAsset = asset.ID(funding)
	inst.NativeRecipient = vesting.NativeRecipient(native)
	inst.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &inst, nil
}

func loadInstance(ctx context.Context, q querier, id string) (*vesting.Instance, error) {
	inst, err := scanInstance(q.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM vesting_instances WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT beneficiary, entitlement, claimed, funding_allocation, funded, funding_claimed, refund
		FROM beneficiaries
		WHERE instance_id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get beneficiaries: %w", err)
	}
	defer rows.Close()

	var records []vesting.BeneficiaryRecord
	for rows.Next() {
		var rec vesting.BeneficiaryRecord
		var beneficiary string
		if err := rows.Scan(
			&beneficiary,
			&rec.Entitlement,
			&rec.Claimed,
			&rec.FundingAllocation,
			&rec.Funded,
			&rec.FundingClaimed,
			&rec.Refund,
		); err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary: %w", err)
		}
		rec.Beneficiary = role.Address(beneficiary)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate beneficiaries: %w", err)
	}
	inst.Hydrate(records...)
	return inst, nil
}

func saveInstance(ctx context.Context, q querier, inst *vesting.Instance) error {
	_, err := q.ExecContext(ctx, `
		UPDATE vesting_instances
		SET owner = ?, project = ?, phase = ?, start_time = ?,
		    total_entitlement = ?, total_claimed = ?, total_funding_allocation = ?,
		    total_funded = ?, total_funding_claimed = ?
		WHERE id = ?
	`,
		string(inst.Roles.Owner),
		string(inst.Roles.Project),
		string(inst.Phase),
		unixOrNull(inst.StartTime),
		inst.Totals.Entitlement.String(),
		inst.Totals.Claimed.String(),
		inst.Totals.FundingAllocation.String(),
		inst.Totals.Funded.String(),
		inst.Totals.FundingClaimed.String(),
		inst.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update instance: %w", err)
	}
	return nil
}

func saveRecords(ctx context.Context, q querier, instanceID string, records []vesting.BeneficiaryRecord) error {
	for _, rec := range records {
		_, err := q.ExecContext(ctx, `
			INSERT INTO beneficiaries (
				instance_id, beneficiary, entitlement, claimed,
				funding_allocation, funded, funding_claimed, refund
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(instance_id, beneficiary) DO UPDATE SET
				entitlement = excluded.entitlement,
				claimed = excluded.claimed,
				funding_allocation = excluded.funding_allocation,
				funded = excluded.funded,
				funding_claimed = excluded.funding_claimed,
				refund = excluded.refund
		`,
			instanceID,
			string(rec.Beneficiary),
			rec.Entitlement.String(),
			rec.Claimed.String(),
			rec.FundingAllocation.String(),
			rec.Funded.String(),
			rec.FundingClaimed.String(),
			boolToInt(rec.Refund),
		)
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if err != nil {
			return fmt.Errorf("failed to save beneficiary %s: %w", rec.Beneficiary, err)
		}
	}
	return nil
}

func unixOrNull(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
