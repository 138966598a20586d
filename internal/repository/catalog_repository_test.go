package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/realty-inventory/internal/apperror"
	"github.com/iliyamo/realty-inventory/internal/model"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestTowerRepo_GetTower(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT id, project_id, name, premiums FROM towers`).
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "premiums"}).
			AddRow(uint64(10), uint64(100), "Tower A",
				[]byte(`{"floorRise":{"type":"fixed","value":100,"floorStart":5},"viewPremium":[{"view":"sea","percentage":2}]}`)))

	tw, err := NewTowerRepo(db).GetTower(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, tw.Premiums.FloorRise)
	assert.Equal(t, model.FloorRiseFixed, tw.Premiums.FloorRise.Type)
	assert.Equal(t, 5, tw.Premiums.FloorRise.FloorStart)
	pct, ok := tw.ViewPercentage("sea")
	assert.True(t, ok)
	assert.True(t, pct.Equal(decimal.NewFromInt(2)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTowerRepo_GetTower_BadPremiums(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT id, project_id, name, premiums FROM towers`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "premiums"}).
			AddRow(uint64(10), uint64(100), "Tower A", []byte(`{"floorRise":`)))

	_, err := NewTowerRepo(db).GetTower(context.Background(), 10)
	assert.Equal(t, apperror.CodeConfiguration, apperror.CodeOf(err))
}

func TestProjectRepo_GetProject(t *testing.T) {
	db, mock := newMockDB(t)
	cols := []string{"id", "tenant_id", "name", "gst_rate", "stamp_duty_rate", "registration_rate", "custom_pricing_model"}
	mock.ExpectQuery(`SELECT id, tenant_id, name, gst_rate`).
		WithArgs(uint64(100)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uint64(100), uint64(1), "Skyline", "12", nil, nil, []byte(`{"priceBasedOn":"carpetArea"}`)))

	p, err := NewProjectRepo(db).GetProject(context.Background(), 100)
	require.NoError(t, err)
	gst, stamp, reg := p.Rates()
	assert.True(t, gst.Equal(decimal.NewFromInt(12)))
	assert.True(t, stamp.Equal(model.DefaultStampDutyRate))
	assert.True(t, reg.Equal(model.DefaultRegistrationRate))
	assert.JSONEq(t, `{"priceBasedOn":"carpetArea"}`, string(p.CustomPricingModel))
}

func TestProjectRepo_GetProject_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT id, tenant_id, name`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewProjectRepo(db).GetProject(context.Background(), 7)
	assert.True(t, apperror.IsNotFound(err))
}

func TestTenantRepo_GetTenant(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT id, name, settings FROM tenants`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "settings"}).
			AddRow(uint64(1), "Acme", []byte(`{"businessRules":{"lockPeriodMinutes":45},"pricingRules":{"gst":{"rate":12}}}`)))

	tn, err := NewTenantRepo(db).GetTenant(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 45, tn.LockPeriodMinutes(30))
	assert.NotEmpty(t, tn.Settings.PricingRules)
}

func TestUnitTypeRuleRepo_FindUnitTypeRule(t *testing.T) {
	cols := []string{"id", "tenant_id", "project_id", "unit_type", "pricing_rules", "is_active"}

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM unit_type_rules`).
			WithArgs(uint64(1), uint64(100), "3BHK").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(uint64(4), uint64(1), uint64(100), "3BHK", []byte(`{"priceBasedOn":"builtUpArea"}`), true))

		r, err := NewUnitTypeRuleRepo(db).FindUnitTypeRule(context.Background(), 1, 100, "3BHK")
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.True(t, r.Active)
		assert.Equal(t, "3BHK", r.UnitType)
	})

	t.Run("absent", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM unit_type_rules`).WillReturnRows(sqlmock.NewRows(cols))

		r, err := NewUnitTypeRuleRepo(db).FindUnitTypeRule(context.Background(), 1, 100, "1RK")
		require.NoError(t, err)
		assert.Nil(t, r)
	})
}
