package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/google/uuid"
)

func TestSupplierWebhook_PostsEventToPath(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewSupplierWebhook(srv.URL, "secret-key", time.Second)
	linked := uuid.New()
	result := client.Notify(context.Background(), OrderNotification{
		Event:   OrderEventCancelled,
		OrderNo: "ORD-20250601-AB2C",
		Supplier: &models.SupplierContact{
			Name:           "MedSupply",
			LinkedTenantID: &linked,
		},
	})

	if result.Status != StatusSent {
		t.Fatalf("expected sent, got %+v", result)
	}
	if gotPath != "/supplier/orders/cancel" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "secret-key" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if gotBody["order_no"] != "ORD-20250601-AB2C" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if gotBody["supplier_tenant_id"] != linked.String() {
		t.Fatalf("expected supplier tenant id in payload, got %v", gotBody["supplier_tenant_id"])
	}
}

func TestSupplierWebhook_ContactBaseURLOverride(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewSupplierWebhook("http://unreachable.invalid", "", time.Second)
	linked := uuid.New()
	result := client.Notify(context.Background(), OrderNotification{
		Event: OrderEventCreated,
		Supplier: &models.SupplierContact{
			LinkedTenantID: &linked,
			BaseURL:        srv.URL,
		},
	})

	if result.Status != StatusSent {
		t.Fatalf("expected sent via override, got %+v", result)
	}
	if hits != 1 {
		t.Fatalf("expected 1 hit on override server, got %d", hits)
	}
}

func TestSupplierWebhook_FailureStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "supplier platform down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewSupplierWebhook(srv.URL, "", time.Second)
	linked := uuid.New()
	result := client.Notify(context.Background(), OrderNotification{
		Event:    OrderEventCreated,
		Supplier: &models.SupplierContact{LinkedTenantID: &linked},
	})

	if result.Status != StatusFailed {
		t.Fatalf("expected failed, got %+v", result)
	}
	if result.Err == nil {
		t.Fatal("expected error detail on failure")
	}
}

func TestSupplierWebhook_SkipsUnlinkedSupplier(t *testing.T) {
	client := NewSupplierWebhook("http://example.invalid", "", time.Second)
	result := client.Notify(context.Background(), OrderNotification{
		Event:    OrderEventCreated,
		Supplier: &models.SupplierContact{Name: "Manual Co"},
	})
	if result.Status != StatusSkipped {
		t.Fatalf("expected skipped for unlinked supplier, got %+v", result)
	}
}
