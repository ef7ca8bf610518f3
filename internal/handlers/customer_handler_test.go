package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"billing-system/internal/database/models"
)

func TestCreateCustomerValidatesTaxID(t *testing.T) {
	env := newTestEnv(t)
	token := env.authToken(t)

	w := env.do(t, http.MethodPost, "/api/v1/customers", token,
		`{"name": "Acme Ltd", "tax_id": "abc"}`)
	if resp := decodeEnvelope(t, w); w.Code != http.StatusBadRequest || resp.Type != "validation_error" {
		t.Errorf("status %d type %q, want 400 validation_error", w.Code, resp.Type)
	}

	w = env.do(t, http.MethodPost, "/api/v1/customers", token,
		`{"name": "Acme Ltd", "tax_id": "GSTIN12345", "email": "billing@acme.example"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var created models.Customer
	decodeResults(t, decodeEnvelope(t, w), &created)
	if created.Status != "active" {
		t.Errorf("status = %s, want active", created.Status)
	}
	if created.TaxID == nil || *created.TaxID != "GSTIN12345" {
		t.Errorf("tax_id = %v, want GSTIN12345", created.TaxID)
	}
}

func TestListCustomersSearch(t *testing.T) {
	env := newTestEnv(t)
	token := env.authToken(t)
	seedCustomer(t, env.db, "Acme Ltd")
	seedCustomer(t, env.db, "Globex")
	seedCustomer(t, env.db, "Acme Europe")

	w := env.do(t, http.MethodGet, "/api/v1/customers?q=acme", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Data.Meta.Total != 2 {
		t.Errorf("meta.total = %d, want 2", resp.Data.Meta.Total)
	}
}

func TestListCustomersPagination(t *testing.T) {
	env := newTestEnv(t)
	token := env.authToken(t)
	for i := 0; i < 15; i++ {
		seedCustomer(t, env.db, fmt.Sprintf("Customer %02d", i))
	}

	w := env.do(t, http.MethodGet, "/api/v1/customers?page=2&limit=10", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Data.Meta.Total != 15 || resp.Data.Meta.Page != 2 {
		t.Errorf("meta = %+v, want total 15 page 2", resp.Data.Meta)
	}

	var results []models.Customer
	decodeResults(t, resp, &results)
	if len(results) != 5 {
		t.Errorf("page 2 results = %d, want 5", len(results))
	}
}

func TestUpdateCustomer(t *testing.T) {
	env := newTestEnv(t)
	token := env.authToken(t)
	customer := seedCustomer(t, env.db, "Acme Ltd")

	w := env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/customers/%d", customer.ID), token,
		`{"phone": "+1-555-0100", "status": "inactive"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var after models.Customer
	if err := env.db.First(&after, customer.ID).Error; err != nil {
		t.Fatalf("load customer: %v", err)
	}
	if after.Phone == nil || *after.Phone != "+1-555-0100" {
		t.Errorf("phone = %v", after.Phone)
	}
	if after.Status != "inactive" {
		t.Errorf("status = %s, want inactive", after.Status)
	}
	if after.Name != "Acme Ltd" {
		t.Errorf("name = %s, want Acme Ltd untouched", after.Name)
	}
}

func TestDeleteCustomerIsSoft(t *testing.T) {
	env := newTestEnv(t)
	token := env.authToken(t)
	customer := seedCustomer(t, env.db, "Acme Ltd")

	w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/customers/%d", customer.ID), token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var after models.Customer
	if err := env.db.First(&after, customer.ID).Error; err != nil {
		t.Fatalf("customer row should survive deletion: %v", err)
	}
	if after.Status != "inactive" {
		t.Errorf("status = %s, want inactive", after.Status)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/customers/9999", token, "")
	if resp := decodeEnvelope(t, w); w.Code != http.StatusNotFound || resp.Type != "not_found" {
		t.Errorf("missing customer: status %d type %q, want 404 not_found", w.Code, resp.Type)
	}
}
