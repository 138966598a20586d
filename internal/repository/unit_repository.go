package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/realty-inventory/internal/apperror"
	"github.com/iliyamo/realty-inventory/internal/lifecycle"
	"github.com/iliyamo/realty-inventory/internal/model"
)

// UnitRepo provides data access to the units table.  Status changes go
// through UpdateUnitIf only; there is no unconditional status write.
// All timestamps are stored and compared in UTC.
type UnitRepo struct {
	db *sql.DB
}

// NewUnitRepo returns a new UnitRepo bound to the provided database.
func NewUnitRepo(db *sql.DB) *UnitRepo { return &UnitRepo{db: db} }

const unitColumns = `id, tower_id, project_id, unit_number, unit_type, floor,
	carpet_area, built_up_area, super_built_up_area, base_price,
	views, premium_adjustments, additional_charges,
	status, locked_by, locked_until, booking_id, updated_at`

// GetUnit loads one unit by primary key.  A missing row is reported as an
// apperror.NotFoundError.
func (r *UnitRepo) GetUnit(ctx context.Context, id uint64) (*model.Unit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE id = ?`, id)
	u, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("unit", id)
		}
		return nil, fmt.Errorf("get unit %d: %w", id, err)
	}
	return u, nil
}

// UpdateUnitIf applies upd as a single conditional UPDATE.  The row only
// changes when its status still equals upd.From (and, for expiry
// conditions, locked_until compares as required).  When no row is affected
// the unit is re-read to tell a missing unit from a stale transition.
// On success the updated unit is returned.
func (r *UnitRepo) UpdateUnitIf(ctx context.Context, id uint64, upd lifecycle.Update) (*model.Unit, error) {
	set := []string{"status = ?", "locked_by = ?", "locked_until = ?"}
	args := []any{string(upd.To), nullUint(upd.LockedBy), nullTime(upd.LockedUntil)}
	if !upd.KeepBooking {
		set = append(set, "booking_id = ?")
		args = append(args, nullString(upd.BookingID))
	}
	set = append(set, "updated_at = UTC_TIMESTAMP()")

	where := "id = ? AND status = ?"
	args = append(args, id, string(upd.From))
	switch upd.Expiry {
	case lifecycle.LockExpired:
		where += " AND locked_until < ?"
		args = append(args, upd.At.UTC())
	case lifecycle.LockLive:
		where += " AND locked_until >= ?"
		args = append(args, upd.At.UTC())
	}

	q := "UPDATE units SET " + strings.Join(set, ", ") + " WHERE " + where
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("update unit %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update unit %d: %w", id, err)
	}

	cur, err := r.GetUnit(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, upd.Mismatch(id, cur)
	}
	return cur, nil
}

// ListExpiredLocks returns the IDs of locked units whose lock expired
// strictly before now, oldest first.  limit <= 0 means no limit.
func (r *UnitRepo) ListExpiredLocks(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	q := `SELECT id FROM units WHERE status = ? AND locked_until < ? ORDER BY locked_until, id`
	args := []any{string(model.UnitStatusLocked), now.UTC()}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expired locks: %w", err)
	}
	defer rows.Close()
	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list expired locks: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expired locks: %w", err)
	}
	return ids, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(s rowScanner) (*model.Unit, error) {
	var (
		u                          model.Unit
		status                     string
		views, adjustments, charge []byte
		lockedBy                   sql.NullInt64
		lockedUntil                sql.NullTime
		bookingID                  sql.NullString
	)
	err := s.Scan(&u.ID, &u.TowerID, &u.ProjectID, &u.UnitNumber, &u.UnitType, &u.Floor,
		&u.CarpetArea, &u.BuiltUpArea, &u.SuperBuiltUpArea, &u.BasePrice,
		&views, &adjustments, &charge,
		&status, &lockedBy, &lockedUntil, &bookingID, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Status = model.UnitStatus(status)
	if err := unmarshalColumn(views, &u.Views); err != nil {
		return nil, fmt.Errorf("unit %d views: %w", u.ID, err)
	}
	if err := unmarshalColumn(adjustments, &u.PremiumAdjustments); err != nil {
		return nil, fmt.Errorf("unit %d premium_adjustments: %w", u.ID, err)
	}
	if err := unmarshalColumn(charge, &u.AdditionalCharges); err != nil {
		return nil, fmt.Errorf("unit %d additional_charges: %w", u.ID, err)
	}
	if lockedBy.Valid {
		v := uint64(lockedBy.Int64)
		u.LockedBy = &v
	}
	if lockedUntil.Valid {
		v := lockedUntil.Time.UTC()
		u.LockedUntil = &v
	}
	if bookingID.Valid {
		v := bookingID.String
		u.BookingID = &v
	}
	return &u, nil
}

// unmarshalColumn decodes a JSON column; NULL and empty columns leave dst
// untouched.
func unmarshalColumn(raw []byte, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nullUint(p *uint64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
