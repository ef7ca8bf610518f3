package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"billing-system/internal/database/models"
	"billing-system/internal/httpx"
)

const (
	productListCacheKey = "billing:products"
	productCacheTTL     = 10 * time.Minute
)

type cachedProductList struct {
	Results []models.Product `json:"results"`
	Total   int64            `json:"total"`
}

type ProductHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewProductHandler(db *gorm.DB, redisClient *redis.Client) *ProductHandler {
	return &ProductHandler{
		db:    db,
		redis: redisClient,
	}
}

func (h *ProductHandler) invalidateProductCaches(ctx context.Context) {
	if h.redis == nil {
		return
	}
	_ = h.redis.Del(ctx, productListCacheKey)
}

type CreateProductRequest struct {
	SKU       string          `json:"sku" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int32           `json:"stock"`
}

type UpdateProductRequest struct {
	Name      *string          `json:"name,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Stock     *int32           `json:"stock,omitempty"`
	IsActive  *bool            `json:"is_active,omitempty"`
}

type ListProductsQuery struct {
	Q        string `form:"q"`
	IsActive *bool  `form:"is_active,omitempty"`
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=10"`
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	if req.UnitPrice.IsNegative() {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "unit_price must not be negative", nil)
		return
	}
	if req.Stock < 0 {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "stock must not be negative", nil)
		return
	}

	product := models.Product{
		SKU:       req.SKU,
		Name:      req.Name,
		UnitPrice: req.UnitPrice.StringFixed(2),
		Stock:     req.Stock,
		IsActive:  true,
	}
	if err := h.db.Create(&product).Error; err != nil {
		if field, ok := httpx.DuplicateField(err); ok {
			httpx.Fail(c, http.StatusConflict, httpx.TypeDuplicateEntry, "SKU already exists", gin.H{"field": field})
			return
		}
		log.Printf("create product: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error creating product", nil)
		return
	}

	h.invalidateProductCaches(c.Request.Context())

	httpx.OK(c, http.StatusCreated, "Product created successfully", product)
}

func (h *ProductHandler) List(c *gin.Context) {
	var query ListProductsQuery
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

	// Only the default first page is cached.
	cacheable := query.Q == "" && query.IsActive == nil && query.Page == 1 && query.Limit == 10
	if cacheable && h.redis != nil {
		if val, err := h.redis.Get(c.Request.Context(), productListCacheKey).Result(); err == nil {
			var cached cachedProductList
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				httpx.OKWithMeta(c, http.StatusOK, "Products retrieved successfully", cached.Results, httpx.Meta{
					Page:  query.Page,
					Limit: query.Limit,
					Total: cached.Total,
				})
				return
			}
		} else if err != redis.Nil {
			log.Printf("list products: cache get: %v", err)
		}
	}

	q := h.db.Model(&models.Product{})
	if query.IsActive != nil {
		q = q.Where("is_active = ?", *query.IsActive)
	}
	if query.Q != "" {
		term := "%" + query.Q + "%"
		q = q.Where("LOWER(sku) LIKE LOWER(?) OR LOWER(name) LIKE LOWER(?)", term, term)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		log.Printf("list products: count: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	var products []models.Product
	offset := (query.Page - 1) * query.Limit
	if err := q.Order("id DESC").Offset(offset).Limit(query.Limit).Find(&products).Error; err != nil {
		log.Printf("list products: %v", err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	if cacheable && h.redis != nil {
		if data, err := json.Marshal(cachedProductList{Results: products, Total: total}); err == nil {
			if err := h.redis.Set(c.Request.Context(), productListCacheKey, data, productCacheTTL).Err(); err != nil {
				log.Printf("list products: cache set: %v", err)
			}
		}
	}

	httpx.OKWithMeta(c, http.StatusOK, "Products retrieved successfully", products, httpx.Meta{
		Page:  query.Page,
		Limit: query.Limit,
		Total: total,
	})
}

func (h *ProductHandler) Get(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid product ID", nil)
		return
	}

	var product models.Product
	if err := h.db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "Product not found", nil)
			return
		}
		log.Printf("get product %d: %v", productID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	httpx.OK(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *ProductHandler) Update(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid product ID", nil)
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid request format", err.Error())
		return
	}

	var product models.Product
	if err := h.db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "Product not found", nil)
			return
		}
		log.Printf("update product %d: %v", productID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Database error", nil)
		return
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "unit_price must not be negative", nil)
			return
		}
		product.UnitPrice = req.UnitPrice.StringFixed(2)
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "stock must not be negative", nil)
			return
		}
		product.Stock = *req.Stock
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.db.Save(&product).Error; err != nil {
		log.Printf("update product %d: save: %v", productID, err)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error updating product", nil)
		return
	}

	h.invalidateProductCaches(c.Request.Context())

	httpx.OK(c, http.StatusOK, "Product updated successfully", product)
}

// Delete soft-deletes: invoice items keep their price snapshots and
// product references.
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Fail(c, http.StatusBadRequest, httpx.TypeValidation, "Invalid product ID", nil)
		return
	}

	res := h.db.Model(&models.Product{}).Where("id = ?", productID).Update("is_active", false)
	if res.Error != nil {
		log.Printf("delete product %d: %v", productID, res.Error)
		httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Error deleting product", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.Fail(c, http.StatusNotFound, httpx.TypeNotFound, "Product not found", nil)
		return
	}

	h.invalidateProductCaches(c.Request.Context())

	httpx.OK(c, http.StatusOK, "Product deactivated successfully", nil)
}
