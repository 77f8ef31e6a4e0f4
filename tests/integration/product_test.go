//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGetWithAuth(t, "/api/products", testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 6 {
		t.Fatalf("expected 6 products, got %d", len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	espresso := fetchProduct(t, "prod-espresso")

	if espresso.Name != "Espresso machine" {
		t.Errorf("name: got %q, want %q", espresso.Name, "Espresso machine")
	}
	if espresso.Price != 349.9 {
		t.Errorf("price: got %v, want 349.9", espresso.Price)
	}
	if espresso.Stock < 0 {
		t.Errorf("stock: got %d, want >= 0", espresso.Stock)
	}
}

func TestListProducts_NoAuth(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 401 {
		t.Errorf("error code: got %d, want 401", errResp.Code)
	}
}
