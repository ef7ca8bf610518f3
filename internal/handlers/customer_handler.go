package handlers

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"billing-system/internal/database/models"
	"billing-system/internal/httpx"
)

var taxIDPattern = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)

type CustomerHandler struct {
	db *gorm.DB
}

func NewCustomerHandler(db *gorm.DB) *CustomerHandler {
	return &CustomerHandler{db: db}
}

type CreateCustomerRequest struct {
	Name    string  `json:"name" binding:"required"`
	Email   *string `json:"email,omitempty" binding:"omitempty,email"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	TaxID   *string `json:"tax_id,omitempty"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty" binding:"omitempty,email"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	TaxID   *string `json:"tax_id,omitempty"`
	Status  *string `json:"status,omitempty"`
}

type ListCustomersQuery struct {
	Q      string `form:"q"`
	Status string `form:"status"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=10"`
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	if req.TaxID != nil && !taxIDPattern.MatchString(*req.TaxID) {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "tax_id must be 5-20 uppercase alphanumeric characters", nil)
		return
	}

	customer := models.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		TaxID:   req.TaxID,
		Status:  "active",
	}
	if err := h.db.Create(&customer).Error; err != nil {
		log.Printf("create customer: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error creating customer", nil)
		return
	}

	httpx.OK(c, http.StatusCreated, "Customer created successfully", customer)
}

func (h *CustomerHandler) List(c *gin.Context) {
	var query ListCustomersQuery
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

	q := h.db.Model(&models.Customer{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.Q != "" {
		term := "%" + query.Q + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", term, term)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		log.Printf("list customers: count: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	var customers []models.Customer
	offset := (query.Page - 1) * query.Limit
	if err := q.Order("id DESC").Offset(offset).Limit(query.Limit).Find(&customers).Error; err != nil {
		log.Printf("list customers: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	httpx.OKWithMeta(c, http.StatusOK, "Customers retrieved successfully", customers, httpx.Meta{
		Page:  query.Page,
		Limit: query.Limit,
		Total: total,
	})
}

func (h *CustomerHandler) Get(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid customer ID", nil)
		return
	}

	var customer models.Customer
	if err := h.db.First(&customer, customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "Customer not found", nil)
			return
		}
		log.Printf("get customer %d: %v", customerID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	httpx.OK(c, http.StatusOK, "Customer retrieved successfully", customer)
}

func (h *CustomerHandler) Update(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid customer ID", nil)
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	var customer models.Customer
	if err := h.db.First(&customer, customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "Customer not found", nil)
			return
		}
		log.Printf("update customer %d: %v", customerID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	if req.TaxID != nil && !taxIDPattern.MatchString(*req.TaxID) {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "tax_id must be 5-20 uppercase alphanumeric characters", nil)
		return
	}
	if req.Status != nil && *req.Status != "active" && *req.Status != "inactive" {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "status must be active or inactive", nil)
		return
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = req.Email
	}
	if req.Phone != nil {
		customer.Phone = req.Phone
	}
	if req.Address != nil {
		customer.Address = req.Address
	}
	if req.TaxID != nil {
		customer.TaxID = req.TaxID
	}
	if req.Status != nil {
		customer.Status = *req.Status
	}

	if err := h.db.Save(&customer).Error; err != nil {
		log.Printf("update customer %d: save: %v", customerID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error updating customer", nil)
		return
	}

	httpx.OK(c, http.StatusOK, "Customer updated successfully", customer)
}

// Delete soft-deletes: invoices keep referencing the customer row.
func (h *CustomerHandler) Delete(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid customer ID", nil)
		return
	}

	res := h.db.Model(&models.Customer{}).Where("id = ?", customerID).Update("status", "inactive")
	if res.Error != nil {
		log.Printf("delete customer %d: %v", customerID, res.Error)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error deleting customer", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "Customer not found", nil)
		return
	}

	httpx.OK(c, http.StatusOK, "Customer deactivated successfully", nil)
}
