package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mariyam933/fyp/internal/apperr"
	"github.com/mariyam933/fyp/internal/billing"
	"github.com/mariyam933/fyp/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BillStore persists bills and prices them on the way in.
type BillStore struct {
	db      *gorm.DB
	dueDays int
	now     func() time.Time
}

func NewBillStore(db *gorm.DB, dueDays int) *BillStore {
	return &BillStore{db: db, dueDays: dueDays, now: time.Now}
}

// CreateBillInput is a new meter reading. PreviousReading nil means "use the
// customer's latest bill".
type CreateBillInput struct {
	CustomerID      uint
	MeterSrNo       string
	CurrentReading  float64
	PreviousReading *float64
	ImageURL        string
	IsOCRProcessed  bool
}

// BillPatch is a partial edit. CurrentReading and UnitsConsumed are
// alternatives; at most one may be set.
type BillPatch struct {
	MeterSrNo      *string
	CurrentReading *float64
	UnitsConsumed  *float64
	Status         *models.BillStatus
}

// FindLatestForCustomer returns the most recent bill, or nil if the customer has none.
func (s *BillStore) FindLatestForCustomer(ctx context.Context, customerID uint) (*models.Bill, error) {
	return latestForCustomer(s.db.WithContext(ctx), customerID)
}

func latestForCustomer(tx *gorm.DB, customerID uint) (*models.Bill, error) {
	var bill models.Bill
	err := tx.Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Order("id DESC").
		Take(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest bill: %w", err)
	}
	return &bill, nil
}

// ListForCustomer returns a customer's bills, newest first.
func (s *BillStore) ListForCustomer(ctx context.Context, customerID uint) ([]models.Bill, error) {
	var bills []models.Bill
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&bills).Error
	if err != nil {
		return nil, fmt.Errorf("list customer bills: %w", err)
	}
	return bills, nil
}

// List returns every bill with its customer, newest first.
func (s *BillStore) List(ctx context.Context) ([]models.Bill, error) {
	var bills []models.Bill
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Order("created_at DESC").
		Order("id DESC").
		Find(&bills).Error
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// Get returns one bill with its customer.
func (s *BillStore) Get(ctx context.Context, id uint) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.WithContext(ctx).Preload("Customer").Take(&bill, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("bill")
	}
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	return &bill, nil
}

// Create prices and stores a bill against rates.
//
// The customer row is locked for the duration of the transaction, so two
// readings for the same customer cannot both chain off the same previous bill.
func (s *BillStore) Create(ctx context.Context, in CreateBillInput, rates models.TariffRates) (*models.Bill, error) {
	in.MeterSrNo = strings.TrimSpace(in.MeterSrNo)
	if in.CustomerID == 0 {
		return nil, apperr.Validation("customerId", "customerId is required")
	}
	if in.MeterSrNo == "" {
		return nil, apperr.Validation("meterSrNo", "meterSrNo is required")
	}

	var bill models.Bill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the customer and make sure it is one
		var customer models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND role = ?", in.CustomerID, models.RoleCustomer).
			Take(&customer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("customer")
		}
		if err != nil {
			return fmt.Errorf("lock customer: %w", err)
		}

		// 2. Resolve the previous reading
		var previous float64
		if in.PreviousReading != nil {
			previous = *in.PreviousReading
		} else {
			latest, err := latestForCustomer(tx, in.CustomerID)
			if err != nil {
				return err
			}
			if latest == nil {
				return apperr.Validation("previousReading", "previousReading is required for a customer's first bill")
			}
			previous = latest.CurrentReading
		}

		// 3. Price it
		breakdown, err := billing.Calculate(previous, in.CurrentReading, rates)
		if err != nil {
			return err
		}
		r := breakdown.Rounded()

		// 4. Insert
		now := s.now()
		bill = models.Bill{
			CustomerID:      in.CustomerID,
			MeterSrNo:       in.MeterSrNo,
			CurrentReading:  in.CurrentReading,
			PreviousReading: previous,
			UnitsConsumed:   r.UnitsConsumed,
			TotalBill:       r.Total,
			Charges:         r.Charges,
			TariffRates:     datatypes.NewJSONType(rates),
			ImageURL:        in.ImageURL,
			IsOCRProcessed:  in.IsOCRProcessed,
			Status:          models.BillStatusPending,
			DueDate:         now.AddDate(0, 0, s.dueDays),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Create(&bill).Error; err != nil {
			return fmt.Errorf("create bill: %w", err)
		}
		bill.Customer = &customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// Update applies patch and reprices with the tariff the bill was created under.
// Bills stored without a snapshot are repriced at the current settings.
func (s *BillStore) Update(ctx context.Context, id uint, patch BillPatch) (*models.Bill, error) {
	if patch.CurrentReading != nil && patch.UnitsConsumed != nil {
		return nil, apperr.Validation("unitsConsumed", "provide either currentReading or unitsConsumed, not both")
	}
	if patch.MeterSrNo != nil && strings.TrimSpace(*patch.MeterSrNo) == "" {
		return nil, apperr.Validation("meterSrNo", "meterSrNo cannot be empty")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperr.Validation("status", "invalid status")
	}

	var bill models.Bill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&bill, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("bill")
		}
		if err != nil {
			return fmt.Errorf("load bill: %w", err)
		}

		if patch.MeterSrNo != nil {
			bill.MeterSrNo = strings.TrimSpace(*patch.MeterSrNo)
		}
		if patch.Status != nil {
			bill.Status = *patch.Status
		}

		if patch.CurrentReading != nil || patch.UnitsConsumed != nil {
			rates := bill.TariffRates.Data()
			if rates == (models.TariffRates{}) {
				current, err := ensureSettings(tx)
				if err != nil {
					return err
				}
				rates = current.TariffRates
				bill.TariffRates = datatypes.NewJSONType(rates)
			}

			var breakdown billing.Breakdown
			if patch.CurrentReading != nil {
				breakdown, err = billing.Calculate(bill.PreviousReading, *patch.CurrentReading, rates)
				if err != nil {
					return err
				}
				bill.CurrentReading = *patch.CurrentReading
			} else {
				units := *patch.UnitsConsumed
				if math.IsNaN(units) || math.IsInf(units, 0) || units < 0 {
					return apperr.Validation("unitsConsumed", "invalid unitsConsumed")
				}
				breakdown = billing.CalculateUnits(units, rates)
				bill.CurrentReading = bill.PreviousReading + units
			}

			r := breakdown.Rounded()
			bill.UnitsConsumed = r.UnitsConsumed
			bill.Charges = r.Charges
			bill.TotalBill = r.Total
		}

		bill.UpdatedAt = s.now()
		if err := tx.Omit(clause.Associations).Save(&bill).Error; err != nil {
			return fmt.Errorf("save bill: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// Delete removes a bill and returns it as it was.
func (s *BillStore) Delete(ctx context.Context, id uint) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Take(&bill, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("bill")
		}
		if err != nil {
			return fmt.Errorf("load bill: %w", err)
		}

		res := tx.Delete(&models.Bill{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete bill: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("bill")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// MarkOverdue flags pending bills whose due date has passed and returns how many changed.
func (s *BillStore) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Bill{}).
		Where("status = ? AND due_date < ?", models.BillStatusPending, now).
		Updates(map[string]any{"status": models.BillStatusOverdue, "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("mark overdue bills: %w", res.Error)
	}
	return res.RowsAffected, nil
}
