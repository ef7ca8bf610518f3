package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"billing-system/internal/billing"
	"billing-system/internal/database/models"
	"billing-system/internal/httpx"
)

const (
	invoiceListCacheKey = "billing:invoices"
	invoiceCachePrefix  = "billing:invoice:"
	invoiceCacheTTL     = 10 * time.Minute
)

var validInvoiceStatuses = map[string]bool{
	"pending": true,
	"paid":    true,
	"partial": true,
}

var validPaymentMethods = map[string]bool{
	"cash":       true,
	"card":       true,
	"upi":        true,
	"netbanking": true,
	"wallet":     true,
	"bank":       true,
}

var errCustomerNotFound = errors.New("customer not found")

type InvoiceHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewInvoiceHandler(db *gorm.DB, redisClient *redis.Client) *InvoiceHandler {
	return &InvoiceHandler{
		db:    db,
		redis: redisClient,
	}
}

func (h *InvoiceHandler) invalidateInvoiceCaches(ctx context.Context, invoiceIDs ...int64) {
	if h.redis == nil {
		return
	}
	_ = h.redis.Del(ctx, invoiceListCacheKey)
	for _, id := range invoiceIDs {
		_ = h.redis.Del(ctx, fmt.Sprintf("%s%d", invoiceCachePrefix, id))
	}
}

type CreateInvoiceItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int32 `json:"quantity" binding:"required,min=1"`
}

type CreateInvoiceRequest struct {
	InvoiceNumber  string                     `json:"invoice_number" binding:"required"`
	CustomerID     int64                      `json:"customer_id" binding:"required"`
	DueDate        *time.Time                 `json:"due_date,omitempty"`
	TaxPercent     decimal.Decimal            `json:"tax_percent"`
	DiscountAmount decimal.Decimal            `json:"discount_amount"`
	Status         string                     `json:"status"`
	Notes          *string                    `json:"notes,omitempty"`
	Items          []CreateInvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateInvoiceRequest struct {
	DueDate        *time.Time       `json:"due_date,omitempty"`
	Status         *string          `json:"status,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
	TaxPercent     *decimal.Decimal `json:"tax_percent,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
}

type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate *time.Time      `json:"payment_date,omitempty"`
	Method      string          `json:"method"`
	ReferenceNo *string         `json:"reference_no,omitempty"`
}

type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

type ListInvoicesQuery struct {
	Q      string `form:"q"`
	Status string `form:"status"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=10"`
}

// invoiceWithDue decorates an invoice with amounts derived from its
// payment history; nothing here is persisted.
type invoiceWithDue struct {
	models.Invoice
	PaidAmount string `json:"paid_amount"`
	DueAmount  string `json:"due_amount"`
}

type cachedInvoiceList struct {
	Results []invoiceWithDue `json:"results"`
	Total   int64            `json:"total"`
}

// Create builds the invoice header and its line items in one
// transaction. Product prices are snapshotted at this moment and
// stock is decremented with a compare-and-decrement guard; any
// failure rolls the whole invoice back.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	if req.TaxPercent.IsNegative() {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "tax_percent must not be negative", nil)
		return
	}
	if req.DiscountAmount.IsNegative() {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "discount_amount must not be negative", nil)
		return
	}

	status := req.Status
	if status == "" {
		status = "pending"
	}
	if !validInvoiceStatuses[status] {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "status must be one of: pending, paid, partial", nil)
		return
	}

	var created models.Invoice
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, req.CustomerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errCustomerNotFound
			}
			return err
		}

		prices := make(map[int64]decimal.Decimal, len(req.Items))
		items := make([]billing.Item, 0, len(req.Items))
		for _, item := range req.Items {
			var product models.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &billing.ProductNotFoundError{ProductID: item.ProductID}
				}
				return err
			}

			// Guarded decrement so two concurrent invoices cannot
			// both drain the same finite stock.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &billing.OutOfStockError{
					ProductID: item.ProductID,
					Requested: item.Quantity,
					Available: product.Stock,
				}
			}

			price, err := decimal.NewFromString(product.UnitPrice)
			if err != nil {
				return fmt.Errorf("product %d: invalid unit price %q", product.ID, product.UnitPrice)
			}
			prices[item.ProductID] = price
			items = append(items, billing.Item{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		totals, err := billing.ComputeTotals(items, req.TaxPercent, req.DiscountAmount, func(productID int64) (decimal.Decimal, bool) {
			price, ok := prices[productID]
			return price, ok
		})
		if err != nil {
			return err
		}

		invoice := models.Invoice{
			InvoiceNumber:  req.InvoiceNumber,
			CustomerID:     req.CustomerID,
			DueDate:        req.DueDate,
			TaxPercent:     req.TaxPercent.StringFixed(2),
			Subtotal:       totals.Subtotal.StringFixed(2),
			TaxAmount:      totals.TaxAmount.StringFixed(2),
			DiscountAmount: req.DiscountAmount.StringFixed(2),
			TotalAmount:    totals.Total.StringFixed(2),
			Status:         status,
			Notes:          req.Notes,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}

		for _, item := range req.Items {
			price := prices[item.ProductID]
			line := models.InvoiceItem{
				InvoiceID: invoice.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: price.StringFixed(2),
				LineTotal: price.Mul(decimal.NewFromInt32(item.Quantity)).StringFixed(2),
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}

		created = invoice
		return nil
	})

	if err != nil {
		var notFound *billing.ProductNotFoundError
		var outOfStock *billing.OutOfStockError
		switch {
		case errors.As(err, &notFound):
			httpx.Fail(c, http.StatusBadRequest, httpx.TypeProductNotFound, "Product not found", gin.H{"product_id": notFound.ProductID})
		case errors.As(err, &outOfStock):
			httpx.Fail(c, http.StatusBadRequest, httpx.TypeOutOfStock, "Insufficient stock", gin.H{
				"product_id": outOfStock.ProductID,
				"requested":  outOfStock.Requested,
				"available":  outOfStock.Available,
			})
		case errors.Is(err, billing.ErrNegativeTotal):
			httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Discount exceeds subtotal plus tax", nil)
		case errors.Is(err, errCustomerNotFound):
			httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "Customer not found", nil)
		default:
			if field, ok := httpx.DuplicateField(err); ok {
				httpx.Fail(c, http.StatusConflict, httpx.TypeDuplicateEntry, "Invoice number already exists", gin.H{"field": field})
				return
			}
			log.Printf("create invoice: %v", err)
			httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Failed to create invoice", nil)
		}
		return
	}

	h.invalidateInvoiceCaches(c.Request.Context(), created.ID)

	httpx.OK(c, http.StatusCreated, "Invoice created successfully", gin.H{
		"id":           created.ID,
		"total_amount": created.TotalAmount,
	})
}

func (h *InvoiceHandler) List(c *gin.Context) {
	var query ListInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid query parameters", err.Error())
		return
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	// Only the default first page is cached; filtered views go to the
	// database every time.
	cacheable := query.Q == "" && query.Status == "" && query.Page == 1 && query.Limit == 10
	if cacheable && h.redis != nil {
		if val, err := h.redis.Get(c.Request.Context(), invoiceListCacheKey).Result(); err == nil {
			var cached cachedInvoiceList
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				httpx.OKWithMeta(c, http.StatusOK, "Invoices retrieved successfully", cached.Results, httpx.Meta{
					Page:  query.Page,
					Limit: query.Limit,
					Total: cached.Total,
				})
				return
			}
		} else if err != redis.Nil {
			log.Printf("list invoices: cache get: %v", err)
		}
	}

	q := h.db.Model(&models.Invoice{})
	if query.Status != "" {
		q = q.Where("invoices.status = ?", query.Status)
	}
	if query.Q != "" {
		term := "%" + query.Q + "%"
		q = q.Joins("LEFT JOIN customers ON customers.id = invoices.customer_id").
			Where("LOWER(invoices.invoice_number) LIKE LOWER(?) OR LOWER(customers.name) LIKE LOWER(?)", term, term)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		log.Printf("list invoices: count: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	var invoices []models.Invoice
	offset := (query.Page - 1) * query.Limit
	if err := q.Preload("Customer").Order("invoices.id DESC").Offset(offset).Limit(query.Limit).Find(&invoices).Error; err != nil {
		log.Printf("list invoices: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	results := make([]invoiceWithDue, 0, len(invoices))
	for _, invoice := range invoices {
		paid, due, err := dueAmounts(h.db, invoice)
		if err != nil {
			log.Printf("list invoices: reconcile %d: %v", invoice.ID, err)
			httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Failed to reconcile payments", nil)
			return
		}
		results = append(results, invoiceWithDue{Invoice: invoice, PaidAmount: paid, DueAmount: due})
	}

	if cacheable && h.redis != nil {
		if data, err := json.Marshal(cachedInvoiceList{Results: results, Total: total}); err == nil {
			if err := h.redis.Set(c.Request.Context(), invoiceListCacheKey, data, invoiceCacheTTL).Err(); err != nil {
				log.Printf("list invoices: cache set: %v", err)
			}
		}
	}

	httpx.OKWithMeta(c, http.StatusOK, "Invoices retrieved successfully", results, httpx.Meta{
		Page:  query.Page,
		Limit: query.Limit,
		Total: total,
	})
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid invoice ID", nil)
		return
	}

	cacheKey := fmt.Sprintf("%s%d", invoiceCachePrefix, invoiceID)
	if h.redis != nil {
		if val, err := h.redis.Get(c.Request.Context(), cacheKey).Result(); err == nil {
			var cached invoiceWithDue
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				httpx.OK(c, http.StatusOK, "Invoice retrieved successfully", cached)
				return
			}
		} else if err != redis.Nil {
			log.Printf("get invoice %d: cache get: %v", invoiceID, err)
		}
	}

	var invoice models.Invoice
	if err := h.db.Preload("Customer").Preload("Items.Product").First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "Invoice not found", nil)
			return
		}
		log.Printf("get invoice %d: %v", invoiceID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	paid, due, err := dueAmounts(h.db, invoice)
	if err != nil {
		log.Printf("get invoice %d: reconcile: %v", invoiceID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Failed to reconcile payments", nil)
		return
	}

	result := invoiceWithDue{Invoice: invoice, PaidAmount: paid, DueAmount: due}

	if h.redis != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := h.redis.Set(c.Request.Context(), cacheKey, data, invoiceCacheTTL).Err(); err != nil {
				log.Printf("get invoice %d: cache set: %v", invoiceID, err)
			}
		}
	}

	httpx.OK(c, http.StatusOK, "Invoice retrieved successfully", result)
}

// Update patches header fields only. The tax rate and discount can be
// corrected after the fact, but totals are fixed at creation and never
// recomputed here.
func (h *InvoiceHandler) Update(c *gin.Context) {
	invoiceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid invoice ID", nil)
		return
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	var invoice models.Invoice
	if err := h.db.First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "Invoice not found", nil)
			return
		}
		log.Printf("update invoice %d: %v", invoiceID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	if req.Status != nil {
		if !validInvoiceStatuses[*req.Status] {
			httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "status must be one of: pending, paid, partial", nil)
			return
		}
		invoice.Status = *req.Status
	}
	if req.DueDate != nil {
		invoice.DueDate = req.DueDate
	}
	if req.Notes != nil {
		invoice.Notes = req.Notes
	}
	if req.TaxPercent != nil {
		if req.TaxPercent.IsNegative() {
			httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "tax_percent must not be negative", nil)
			return
		}
		invoice.TaxPercent = req.TaxPercent.StringFixed(2)
	}
	if req.DiscountAmount != nil {
		if req.DiscountAmount.IsNegative() {
			httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "discount_amount must not be negative", nil)
			return
		}
		invoice.DiscountAmount = req.DiscountAmount.StringFixed(2)
	}

	if err := h.db.Save(&invoice).Error; err != nil {
		log.Printf("update invoice %d: save: %v", invoiceID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error updating invoice", nil)
		return
	}

	h.invalidateInvoiceCaches(c.Request.Context(), invoice.ID)

	httpx.OK(c, http.StatusOK, "Invoice updated successfully", invoice)
}

func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	invoiceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid invoice ID", nil)
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	if !req.Amount.IsPositive() {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "amount must be greater than 0", nil)
		return
	}

	method := req.Method
	if method == "" {
		method = "cash"
	}
	if !validPaymentMethods[method] {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "method must be one of: cash, card, upi, netbanking, wallet, bank", nil)
		return
	}

	var invoice models.Invoice
	if err := h.db.First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "Invoice not found", nil)
			return
		}
		log.Printf("record payment: invoice %d: %v", invoiceID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	paymentDate := time.Now()
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}

	payment := models.Payment{
		InvoiceID:   invoice.ID,
		Amount:      req.Amount.StringFixed(2),
		PaymentDate: paymentDate,
		Method:      method,
		ReferenceNo: req.ReferenceNo,
	}
	if err := h.db.Create(&payment).Error; err != nil {
		log.Printf("record payment: invoice %d: %v", invoiceID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error recording payment", nil)
		return
	}

	paid, due, err := dueAmounts(h.db, invoice)
	if err != nil {
		log.Printf("record payment: reconcile %d: %v", invoiceID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Failed to reconcile payments", nil)
		return
	}

	h.invalidateInvoiceCaches(c.Request.Context(), invoice.ID)

	httpx.OK(c, http.StatusCreated, "Payment recorded successfully", gin.H{
		"payment_id":  payment.ID,
		"paid_amount": paid,
		"due_amount":  due,
	})
}

// BulkDelete removes invoices with their line items and payments in a
// single transaction, so no orphan rows survive.
func (h *InvoiceHandler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	var deleted int64
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id IN ?", req.IDs).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id IN ?", req.IDs).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", req.IDs).Delete(&models.Invoice{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		log.Printf("bulk delete invoices: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Failed to delete invoices", nil)
		return
	}

	h.invalidateInvoiceCaches(c.Request.Context(), req.IDs...)

	httpx.OK(c, http.StatusOK, "Invoices deleted successfully", gin.H{"deleted": deleted})
}
