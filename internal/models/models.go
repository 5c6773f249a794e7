package models

import (
	"time"

	"gorm.io/datatypes"
)

// User - an account holder: admin, customer or meter reader
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Address      string    `gorm:"size:255;not null" json:"address"`
	Phone        string    `gorm:"size:32;not null" json:"phone"`
	MeterNo      string    `gorm:"size:64" json:"meterNo,omitempty"` // required for customers only
	Role         Role      `gorm:"size:16;index;not null" json:"role"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"` // Never return this in JSON
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TariffRates - the rate components used to price a bill
type TariffRates struct {
	UnitPrice    float64 `gorm:"not null" json:"unitPrice"`    // per unit
	FCRate       float64 `gorm:"not null" json:"fcRate"`       // fuel charge, per unit
	QtrRate      float64 `gorm:"not null" json:"qtrRate"`      // quarterly tax, per unit
	FPARate      float64 `gorm:"not null" json:"fpaRate"`      // fuel price adjustment, per unit
	FixedCharges float64 `gorm:"not null" json:"fixedCharges"` // flat
	PTVFee       float64 `gorm:"not null" json:"ptvFee"`       // flat
	MeterRent    float64 `gorm:"not null" json:"meterRent"`    // flat
	WaterBill    float64 `gorm:"not null" json:"waterBill"`    // flat
	GSTRate      float64 `gorm:"not null" json:"gstRate"`      // fraction
}

// DefaultTariffRates are written the first time settings are read.
func DefaultTariffRates() TariffRates {
	return TariffRates{
		UnitPrice:    35,
		FCRate:       3.23,
		QtrRate:      0.5,
		FPARate:      0.1,
		FixedCharges: 1000,
		PTVFee:       35,
		MeterRent:    25,
		WaterBill:    250,
		GSTRate:      0.18,
	}
}

// SettingsID is the primary key of the only settings row.
const SettingsID uint = 1

// Settings - the single tariff configuration row
type Settings struct {
	ID uint `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TariffRates
	UpdatedAt time.Time `json:"updatedAt"`
}

// Charges - itemised breakdown stored with each bill
type Charges struct {
	ElectricCost float64 `json:"electricCost"`
	FuelCharge   float64 `json:"fuelCharge"`
	QtrTax       float64 `json:"qtrTax"`
	FPACharge    float64 `json:"fpaCharge"`
	FixedCharges float64 `json:"fixedCharges"`
	PTVFee       float64 `json:"ptvFee"`
	MeterRent    float64 `json:"meterRent"`
	WaterBill    float64 `json:"waterBill"`
	GST          float64 `json:"gst"`
}

// Bill - one meter-reading event for a customer
type Bill struct {
	ID              uint                            `gorm:"primaryKey" json:"id"`
	CustomerID      uint                            `gorm:"index;not null" json:"customerId"`
	Customer        *User                           `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" json:"customer,omitempty"`
	MeterSrNo       string                          `gorm:"size:64;not null" json:"meterSrNo"`
	CurrentReading  float64                         `gorm:"not null" json:"currentReading"`
	PreviousReading float64                         `gorm:"not null" json:"previousReading"`
	UnitsConsumed   float64                         `gorm:"not null" json:"unitsConsumed"`
	TotalBill       float64                         `gorm:"not null" json:"totalBill"`
	Charges         Charges                         `gorm:"embedded;embeddedPrefix:charge_" json:"charges"`
	TariffRates     datatypes.JSONType[TariffRates] `gorm:"not null" json:"tariffRates"` // Snapshot of the rates at creation
	ImageURL        string                          `gorm:"size:512" json:"imageUrl,omitempty"`
	IsOCRProcessed  bool                            `gorm:"not null;default:false" json:"isOcrProcessed"`
	Status          BillStatus                      `gorm:"size:16;index;not null;default:pending" json:"status"`
	DueDate         time.Time                       `gorm:"index;not null" json:"dueDate"`
	CreatedAt       time.Time                       `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time                       `json:"updatedAt"`
}

// BillStatus - payment state of a bill
type BillStatus string

const (
	BillStatusPending BillStatus = "pending"
	BillStatusPaid    BillStatus = "paid"
	BillStatusOverdue BillStatus = "overdue"
)

func (s BillStatus) Valid() bool {
	switch s {
	case BillStatusPending, BillStatusPaid, BillStatusOverdue:
		return true
	}
	return false
}
