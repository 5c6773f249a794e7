package database

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mariyam933/fyp/internal/apperr"
	"github.com/mariyam933/fyp/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsStore keeps the single tariff settings row.
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// SettingsPatch carries the fields to change; nil means keep.
type SettingsPatch struct {
	UnitPrice    *float64
	FCRate       *float64
	QtrRate      *float64
	FPARate      *float64
	FixedCharges *float64
	PTVFee       *float64
	MeterRent    *float64
	WaterBill    *float64
	GSTRate      *float64
}

// Get returns the settings, creating the default row on first use.
func (s *SettingsStore) Get(ctx context.Context) (*models.Settings, error) {
	return ensureSettings(s.db.WithContext(ctx))
}

// Update applies patch and returns the stored result.
func (s *SettingsStore) Update(ctx context.Context, patch SettingsPatch) (*models.Settings, error) {
	updates, err := patch.updates()
	if err != nil {
		return nil, err
	}

	var out *models.Settings
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := ensureSettings(tx)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(current).Updates(updates).Error; err != nil {
				return fmt.Errorf("update settings: %w", err)
			}
		}
		out, err = loadSettings(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ensureSettings reads the row, inserting defaults if it is missing.
// The insert is keyed on the fixed id so concurrent first reads
// still leave exactly one row.
func ensureSettings(tx *gorm.DB) (*models.Settings, error) {
	st, err := loadSettings(tx)
	if err == nil {
		return st, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	row := models.Settings{ID: models.SettingsID, TariffRates: models.DefaultTariffRates()}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create default settings: %w", err)
	}
	return loadSettings(tx)
}

func loadSettings(tx *gorm.DB) (*models.Settings, error) {
	var st models.Settings
	err := tx.Take(&st, "id = ?", models.SettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("settings")
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &st, nil
}

// updates validates the patch and returns the columns to write, keyed by
// field name. Fields are checked in a fixed order so the first bad one
// is reported.
func (p SettingsPatch) updates() (map[string]any, error) {
	fields := []struct {
		jsonName  string
		fieldName string
		value     *float64
	}{
		{"unitPrice", "UnitPrice", p.UnitPrice},
		{"fcRate", "FCRate", p.FCRate},
		{"qtrRate", "QtrRate", p.QtrRate},
		{"fpaRate", "FPARate", p.FPARate},
		{"fixedCharges", "FixedCharges", p.FixedCharges},
		{"ptvFee", "PTVFee", p.PTVFee},
		{"meterRent", "MeterRent", p.MeterRent},
		{"waterBill", "WaterBill", p.WaterBill},
		{"gstRate", "GSTRate", p.GSTRate},
	}

	updates := make(map[string]any)
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		v := *f.value
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, apperr.Validation(f.jsonName, "invalid %s", f.jsonName)
		}
		updates[f.fieldName] = v
	}
	return updates, nil
}
