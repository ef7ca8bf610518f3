package models

import "time"

type Customer struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Email     *string   `gorm:"type:varchar(128)" json:"email,omitempty"`
	Phone     *string   `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Address   *string   `gorm:"type:text" json:"address,omitempty"`
	TaxID     *string   `gorm:"type:varchar(20)" json:"tax_id,omitempty"`
	Status    string    `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU       string    `gorm:"column:sku;type:varchar(32);uniqueIndex;not null" json:"sku"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	UnitPrice string    `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Stock     int32     `gorm:"not null;default:0" json:"stock"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Invoice struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceNumber string     `gorm:"uniqueIndex;not null" json:"invoice_number"`
	CustomerID    int64      `gorm:"index;not null" json:"customer_id"`
	DueDate       *time.Time `json:"due_date,omitempty"`

	TaxPercent     string `gorm:"type:decimal(5,2);not null;default:'0.00'" json:"tax_percent"`
	Subtotal       string `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	TaxAmount      string `gorm:"type:decimal(18,2);not null" json:"tax_amount"`
	DiscountAmount string `gorm:"type:decimal(18,2);not null;default:'0.00'" json:"discount_amount"`
	TotalAmount    string `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	Status         string `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`

	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Customer *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// InvoiceItem captures the product's unit price at invoice-creation
// time; the snapshot never changes afterward.
type InvoiceItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID int64     `gorm:"index;not null" json:"invoice_id"`
	ProductID int64     `gorm:"not null" json:"product_id"`
	Quantity  int32     `gorm:"not null" json:"quantity"`
	UnitPrice string    `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	LineTotal string    `gorm:"type:decimal(18,2);not null" json:"line_total"`
	CreatedAt time.Time `json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// Payment references an invoice but is never owned by it: an invoice
// can accumulate any number of payments over time.
type Payment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID   int64     `gorm:"index;not null" json:"invoice_id"`
	Amount      string    `gorm:"type:decimal(18,2);not null" json:"amount"`
	PaymentDate time.Time `gorm:"not null" json:"payment_date"`
	Method      string    `gorm:"type:varchar(16);not null;default:'cash'" json:"method"`
	ReferenceNo *string   `gorm:"type:varchar(64)" json:"reference_no,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
