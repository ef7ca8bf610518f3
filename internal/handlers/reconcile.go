package handlers

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"billing-system/internal/database/models"
)

// paidAmount sums every payment recorded against an invoice. Summation
// happens in decimal on the application side so sqlite and postgres
// agree to the cent.
func paidAmount(db *gorm.DB, invoiceID int64) (decimal.Decimal, error) {
	var payments []models.Payment
	if err := db.Where("invoice_id = ?", invoiceID).Find(&payments).Error; err != nil {
		return decimal.Zero, err
	}

	paid := decimal.Zero
	for _, p := range payments {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("payment %d: invalid amount %q", p.ID, p.Amount)
		}
		paid = paid.Add(amount)
	}
	return paid, nil
}

// dueAmounts derives paid and due for an invoice. Due is total minus
// paid and is deliberately not floored at zero: an overpaid invoice
// surfaces a negative due amount for the caller to interpret.
func dueAmounts(db *gorm.DB, invoice models.Invoice) (paid, due string, err error) {
	total, err := decimal.NewFromString(invoice.TotalAmount)
	if err != nil {
		return "", "", fmt.Errorf("invoice %d: invalid total %q", invoice.ID, invoice.TotalAmount)
	}

	paidDec, err := paidAmount(db, invoice.ID)
	if err != nil {
		return "", "", err
	}

	return paidDec.StringFixed(2), total.Sub(paidDec).StringFixed(2), nil
}
