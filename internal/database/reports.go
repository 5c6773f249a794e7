package database

import (
	"context"
	"fmt"

	"github.com/mariyam933/fyp/internal/models"
	"gorm.io/gorm"
)

// TopConsumer is one row of the highest-usage table.
type TopConsumer struct {
	CustomerID uint    `json:"customerId"`
	Name       string  `json:"name"`
	Units      float64 `json:"units"`
	Billed     float64 `json:"billed"`
}

// Overview holds the dashboard aggregates
type Overview struct {
	TotalBilled  float64                     `json:"totalBilled"`
	BillCount    int64                       `json:"billCount"`
	ByStatus     map[models.BillStatus]int64 `json:"byStatus"`
	Customers    int64                       `json:"customers"`
	TopConsumers []TopConsumer               `json:"topConsumers"`
	RecentBills  []models.Bill               `json:"recentBills"`
}

// ReportStore runs read-only aggregate queries.
type ReportStore struct {
	db *gorm.DB
}

func NewReportStore(db *gorm.DB) *ReportStore {
	return &ReportStore{db: db}
}

// Overview calculates the all-time dashboard figures.
func (s *ReportStore) Overview(ctx context.Context) (*Overview, error) {
	db := s.db.WithContext(ctx)
	out := Overview{
		ByStatus: map[models.BillStatus]int64{
			models.BillStatusPending: 0,
			models.BillStatusPaid:    0,
			models.BillStatusOverdue: 0,
		},
		TopConsumers: []TopConsumer{},
		RecentBills:  []models.Bill{},
	}

	// 1. Total billed
	// COALESCE ensures we get 0 instead of NULL if no bills exist
	err := db.Model(&models.Bill{}).
		Select("COALESCE(SUM(total_bill), 0)").
		Scan(&out.TotalBilled).Error
	if err != nil {
		return nil, fmt.Errorf("sum bills: %w", err)
	}

	// 2. Count bills, overall and per status
	if err := db.Model(&models.Bill{}).Count(&out.BillCount).Error; err != nil {
		return nil, fmt.Errorf("count bills: %w", err)
	}
	var statusRows []struct {
		Status models.BillStatus
		N      int64
	}
	err = db.Model(&models.Bill{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return nil, fmt.Errorf("count bills by status: %w", err)
	}
	for _, r := range statusRows {
		out.ByStatus[r.Status] = r.N
	}

	// 3. Count customers
	err = db.Model(&models.User{}).
		Where("role = ?", models.RoleCustomer).
		Count(&out.Customers).Error
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	// 4. Top 5 consumers by units
	err = db.Table("bills").
		Select("bills.customer_id AS customer_id, users.name AS name, SUM(bills.units_consumed) AS units, SUM(bills.total_bill) AS billed").
		Joins("JOIN users ON bills.customer_id = users.id").
		Group("bills.customer_id, users.name").
		Order("units DESC").
		Limit(5).
		Scan(&out.TopConsumers).Error
	if err != nil {
		return nil, fmt.Errorf("top consumers: %w", err)
	}

	// 5. Most recent bills
	err = db.Preload("Customer").
		Order("created_at DESC").
		Order("id DESC").
		Limit(10).
		Find(&out.RecentBills).Error
	if err != nil {
		return nil, fmt.Errorf("recent bills: %w", err)
	}

	return &out, nil
}
