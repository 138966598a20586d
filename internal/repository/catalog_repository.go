package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/realty-inventory/internal/apperror"
	"github.com/iliyamo/realty-inventory/internal/model"
)

// TowerRepo reads towers and their premium configuration.
type TowerRepo struct {
	db *sql.DB
}

// NewTowerRepo returns a new TowerRepo bound to the provided database.
func NewTowerRepo(db *sql.DB) *TowerRepo { return &TowerRepo{db: db} }

// GetTower loads a tower by ID.  The premiums column holds the JSON
// document described by model.TowerPremiums; a NULL column decodes to the
// zero value and is rejected later by the pricing calculator.
func (r *TowerRepo) GetTower(ctx context.Context, id uint64) (*model.Tower, error) {
	var (
		t        model.Tower
		premiums []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, premiums FROM towers WHERE id = ?`, id,
	).Scan(&t.ID, &t.ProjectID, &t.Name, &premiums)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tower", id)
		}
		return nil, fmt.Errorf("get tower %d: %w", id, err)
	}
	if err := unmarshalColumn(premiums, &t.Premiums); err != nil {
		return nil, apperror.Configuration("tower", id, "premiums is not valid JSON: %v", err)
	}
	return &t, nil
}

// ProjectRepo reads projects.
type ProjectRepo struct {
	db *sql.DB
}

// NewProjectRepo returns a new ProjectRepo bound to the provided database.
func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{db: db} }

// GetProject loads a project by ID.  NULL rate columns stay invalid so the
// model defaults apply.
func (r *ProjectRepo) GetProject(ctx context.Context, id uint64) (*model.Project, error) {
	var (
		p      model.Project
		custom []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, gst_rate, stamp_duty_rate, registration_rate, custom_pricing_model
		 FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.TenantID, &p.Name, &p.GSTRate, &p.StampDutyRate, &p.RegistrationRate, &custom)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("project", id)
		}
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	p.CustomPricingModel = rawJSON(custom)
	return &p, nil
}

// TenantRepo reads tenants.
type TenantRepo struct {
	db *sql.DB
}

// NewTenantRepo returns a new TenantRepo bound to the provided database.
func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{db: db} }

// GetTenant loads a tenant and decodes its settings document.
func (r *TenantRepo) GetTenant(ctx context.Context, id uint64) (*model.Tenant, error) {
	var (
		t        model.Tenant
		settings []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, settings FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &settings)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("tenant", id)
		}
		return nil, fmt.Errorf("get tenant %d: %w", id, err)
	}
	if err := unmarshalColumn(settings, &t.Settings); err != nil {
		return nil, apperror.Configuration("tenant", id, "settings is not valid JSON: %v", err)
	}
	return &t, nil
}

// UnitTypeRuleRepo reads per unit type pricing overrides.
type UnitTypeRuleRepo struct {
	db *sql.DB
}

// NewUnitTypeRuleRepo returns a new UnitTypeRuleRepo bound to the provided database.
func NewUnitTypeRuleRepo(db *sql.DB) *UnitTypeRuleRepo { return &UnitTypeRuleRepo{db: db} }

// FindUnitTypeRule returns the rule for (tenantID, projectID, unitType), or
// nil with no error when none exists.  Inactive rules are returned as
// stored; callers decide whether to apply them.
func (r *UnitTypeRuleRepo) FindUnitTypeRule(ctx context.Context, tenantID, projectID uint64, unitType string) (*model.UnitTypeRule, error) {
	var (
		rule  model.UnitTypeRule
		rules []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, project_id, unit_type, pricing_rules, is_active
		 FROM unit_type_rules
		 WHERE tenant_id = ? AND project_id = ? AND unit_type = ?
		 ORDER BY is_active DESC, id DESC LIMIT 1`,
		tenantID, projectID, unitType,
	).Scan(&rule.ID, &rule.TenantID, &rule.ProjectID, &rule.UnitType, &rules, &rule.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find unit type rule %d/%d/%s: %w", tenantID, projectID, unitType, err)
	}
	rule.PricingRules = rawJSON(rules)
	return &rule, nil
}

// rawJSON copies a scanned column into a json.RawMessage; the driver may
// reuse the scan buffer.
func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}
