package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"billing-system/internal/database/models"
)

// adminToken seeds an admin user and returns a token carrying the role.
func adminToken(t *testing.T, env *testEnv) string {
	t.Helper()
	user := seedUser(t, env.db, "boss", "boss@example.com", "hunter22")
	user.Role = "admin"
	if err := env.db.Save(&user).Error; err != nil {
		t.Fatalf("save admin: %v", err)
	}
	token, _, err := env.signer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	staff := env.authToken(t)

	w := env.do(t, http.MethodPost, "/api/v1/products", staff,
		`{"sku": "SKU-1", "name": "Widget", "unit_price": "9.99", "stock": 10}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("staff create status = %d, want 403", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.Type != "forbidden" {
		t.Errorf("type = %q, want forbidden", resp.Type)
	}

	admin := adminToken(t, env)
	w = env.do(t, http.MethodPost, "/api/v1/products", admin,
		`{"sku": "SKU-1", "name": "Widget", "unit_price": "9.99", "stock": 10}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("admin create status = %d, body %s", w.Code, w.Body.String())
	}

	var created models.Product
	decodeResults(t, decodeEnvelope(t, w), &created)
	if created.UnitPrice != "9.99" {
		t.Errorf("unit_price = %s, want 9.99", created.UnitPrice)
	}
	if !created.IsActive {
		t.Error("new product should be active")
	}
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	env := newTestEnv(t)
	admin := adminToken(t, env)
	seedProduct(t, env.db, "SKU-1", "9.99", 10)

	w := env.do(t, http.MethodPost, "/api/v1/products", admin,
		`{"sku": "SKU-1", "name": "Widget", "unit_price": "9.99"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Type != "duplicate_entry" {
		t.Errorf("type = %q, want duplicate_entry", resp.Type)
	}
	if field, _ := resp.Error.Details["field"].(string); field != "sku" {
		t.Errorf("details.field = %v, want sku", resp.Error.Details["field"])
	}
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	env := newTestEnv(t)
	admin := adminToken(t, env)

	w := env.do(t, http.MethodPost, "/api/v1/products", admin,
		`{"sku": "SKU-1", "name": "Widget", "unit_price": "-1.00"}`)
	if resp := decodeEnvelope(t, w); w.Code != http.StatusBadRequest || resp.Type != "validation_error" {
		t.Errorf("status %d type %q, want 400 validation_error", w.Code, resp.Type)
	}
}

func TestListProductsFilters(t *testing.T) {
	env := newTestEnv(t)
	token := env.authToken(t)
	seedProduct(t, env.db, "SKU-1", "9.99", 10)
	retired := seedProduct(t, env.db, "SKU-2", "4.99", 0)
	retired.IsActive = false
	if err := env.db.Save(&retired).Error; err != nil {
		t.Fatalf("save product: %v", err)
	}

	w := env.do(t, http.MethodGet, "/api/v1/products?is_active=true", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if resp := decodeEnvelope(t, w); resp.Data.Meta.Total != 1 {
		t.Errorf("meta.total = %d, want 1", resp.Data.Meta.Total)
	}
}

func TestUpdateProductStock(t *testing.T) {
	env := newTestEnv(t)
	admin := adminToken(t, env)
	product := seedProduct(t, env.db, "SKU-1", "9.99", 10)

	w := env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/products/%d", product.ID), admin,
		`{"stock": 25, "unit_price": "12.50"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var after models.Product
	if err := env.db.First(&after, product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if after.Stock != 25 || after.UnitPrice != "12.50" {
		t.Errorf("stock=%d price=%s, want 25/12.50", after.Stock, after.UnitPrice)
	}
}

func TestDeleteProductIsSoft(t *testing.T) {
	env := newTestEnv(t)
	admin := adminToken(t, env)
	product := seedProduct(t, env.db, "SKU-1", "9.99", 10)

	w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", product.ID), admin, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var after models.Product
	if err := env.db.First(&after, product.ID).Error; err != nil {
		t.Fatalf("product row should survive deletion: %v", err)
	}
	if after.IsActive {
		t.Error("product should be inactive after deletion")
	}
}
