// Package receipt renders a bill as a one-page PDF.
package receipt

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/mariyam933/fyp/internal/billing"
	"github.com/mariyam933/fyp/internal/models"
)

const dateLayout = "02 Jan 2006"

type line struct {
	label  string
	amount float64
}

// Write renders bill to w. bill.Customer should be loaded.
func Write(w io.Writer, bill *models.Bill) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Bill #%d", bill.ID), false)
	pdf.AddPage()

	// 1. Header
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Electricity Bill", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Bill #%d  |  Issued %s  |  Due %s",
		bill.ID, bill.CreatedAt.Format(dateLayout), bill.DueDate.Format(dateLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	// 2. Customer
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Customer", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if c := bill.Customer; c != nil {
		keyValue(pdf, "Name", c.Name)
		keyValue(pdf, "Address", c.Address)
		keyValue(pdf, "Phone", c.Phone)
		keyValue(pdf, "Meter No", c.MeterNo)
	} else {
		keyValue(pdf, "Customer ID", fmt.Sprintf("%d", bill.CustomerID))
	}
	pdf.Ln(4)

	// 3. Readings
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Meter Readings", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	keyValue(pdf, "Meter Serial", bill.MeterSrNo)
	keyValue(pdf, "Previous Reading", billing.FormatAmount(bill.PreviousReading))
	keyValue(pdf, "Current Reading", billing.FormatAmount(bill.CurrentReading))
	keyValue(pdf, "Units Consumed", billing.FormatAmount(bill.UnitsConsumed))
	keyValue(pdf, "Status", string(bill.Status))
	pdf.Ln(4)

	// 4. Charges
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, "Charges", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	ch := bill.Charges
	for _, l := range []line{
		{"Electric Cost", ch.ElectricCost},
		{"Fuel Charge", ch.FuelCharge},
		{"Quarterly Tax", ch.QtrTax},
		{"FPA Charge", ch.FPACharge},
		{"Fixed Charges", ch.FixedCharges},
		{"PTV Fee", ch.PTVFee},
		{"Meter Rent", ch.MeterRent},
		{"Water Bill", ch.WaterBill},
		{"GST", ch.GST},
	} {
		pdf.CellFormat(120, 6, l.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, billing.FormatAmount(l.amount), "", 1, "R", false, 0, "")
	}

	// 5. Total
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(120, 9, "Total Payable", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 9, billing.FormatAmount(bill.TotalBill), "T", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return nil
}

func keyValue(pdf *fpdf.Fpdf, key, value string) {
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}
