// Package export writes bills to spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/mariyam933/fyp/internal/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bills"

var headers = []string{
	"Bill ID", "Customer ID", "Customer", "Meter Serial",
	"Previous Reading", "Current Reading", "Units", "Electric Cost",
	"Fuel Charge", "Quarterly Tax", "FPA Charge", "Fixed Charges",
	"PTV Fee", "Meter Rent", "Water Bill", "GST", "Total",
	"Status", "Due Date", "Created At",
}

// WriteBillsXLSX writes one row per bill to w.
func WriteBillsXLSX(w io.Writer, bills []models.Bill) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	// 1. Header row
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}

	// 2. Data rows
	for i, b := range bills {
		customer := ""
		if b.Customer != nil {
			customer = b.Customer.Name
		}
		row := []any{
			b.ID, b.CustomerID, customer, b.MeterSrNo,
			b.PreviousReading, b.CurrentReading, b.UnitsConsumed, b.Charges.ElectricCost,
			b.Charges.FuelCharge, b.Charges.QtrTax, b.Charges.FPACharge, b.Charges.FixedCharges,
			b.Charges.PTVFee, b.Charges.MeterRent, b.Charges.WaterBill, b.Charges.GST, b.TotalBill,
			string(b.Status), b.DueDate.Format("2006-01-02"), b.CreatedAt.Format("2006-01-02 15:04"),
		}
		start, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, start, &row); err != nil {
			return fmt.Errorf("write bill %d: %w", b.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
