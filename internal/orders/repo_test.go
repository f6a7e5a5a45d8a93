package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	"github.com/arbormed/clinicstock-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  order_no TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  supplier_id TEXT,
  total_amount NUMERIC NOT NULL DEFAULT 0,
  confirmed_at DATETIME,
  adjustments TEXT,
  memo TEXT,
  created_by TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, order_no)
);`
	items := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  batch_id TEXT,
  qty INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  total_price NUMERIC NOT NULL DEFAULT 0,
  memo TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	rejected := `
CREATE TABLE IF NOT EXISTS rejected_orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  order_item_id TEXT,
  supplier_name TEXT,
  manager_name TEXT,
  product_name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  reason TEXT,
  rejected_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  brand TEXT,
  unit TEXT,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  supplier_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	suppliers := `
CREATE TABLE IF NOT EXISTS supplier_contacts (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  manager_name TEXT,
  phone TEXT,
  email TEXT,
  linked_tenant_id TEXT,
  base_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(items).Error)
	require.NoError(t, db.Exec(rejected).Error)
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(suppliers).Error)
	return db
}

func newOrder(t *testing.T, db *gorm.DB, tenantID uuid.UUID, orderNo string, createdAt time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:          uuid.New(),
		TenantID:    tenantID,
		OrderNo:     orderNo,
		Status:      enums.OrderStatusPending,
		TotalAmount: decimal.RequireFromString("10.00"),
		CreatedAt:   createdAt,
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: uuid.New(), Qty: 2, UnitPrice: decimal.RequireFromString("5.00"), TotalPrice: decimal.RequireFromString("10.00")},
		},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryFindByNo_exactMatch(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	tenantID := uuid.New()
	now := time.Now().UTC()
	newOrder(t, db, tenantID, "ORD-20260831-AA11", now)
	newOrder(t, db, tenantID, "ORD-20260831-AA11-C", now)

	order, err := repo.FindByNo(context.Background(), tenantID, "ORD-20260831-AA11")
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260831-AA11", order.OrderNo)
	require.Len(t, order.Items, 1)

	_, err = repo.FindByNo(context.Background(), uuid.New(), "ORD-20260831-AA11")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryList_cursorPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	tenantID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		newOrder(t, db, tenantID, fmt.Sprintf("ORD-20260831-AA%02d", i), base.Add(time.Duration(i)*time.Minute))
	}

	first, err := repo.List(context.Background(), tenantID, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, "ORD-20260831-AA04", first.Orders[0].OrderNo)

	second, err := repo.List(context.Background(), tenantID, pagination.Params{Limit: 2, Cursor: first.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, second.Orders, 2)
	assert.Equal(t, "ORD-20260831-AA02", second.Orders[0].OrderNo)

	third, err := repo.List(context.Background(), tenantID, pagination.Params{Limit: 2, Cursor: second.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, third.Orders, 1)
	assert.Empty(t, third.NextCursor)
}

func TestRepositoryList_filters(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	tenantID := uuid.New()
	now := time.Now().UTC()
	confirmed := newOrder(t, db, tenantID, "ORD-20260831-BB01", now)
	require.NoError(t, db.Model(confirmed).Update("status", enums.OrderStatusSupplierConfirmed).Error)
	newOrder(t, db, tenantID, "ORD-20260831-BB02", now)

	status := enums.OrderStatusSupplierConfirmed
	page, err := repo.List(context.Background(), tenantID, pagination.Params{}, ListFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "ORD-20260831-BB01", page.Orders[0].OrderNo)

	page, err = repo.List(context.Background(), tenantID, pagination.Params{}, ListFilters{Query: "BB02"})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "ORD-20260831-BB02", page.Orders[0].OrderNo)
}

func TestRepositoryUpdateItem(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	tenantID := uuid.New()
	order := newOrder(t, db, tenantID, "ORD-20260831-CC01", time.Now().UTC())
	itemID := order.Items[0].ID

	err := repo.UpdateItem(context.Background(), itemID, map[string]any{
		"qty":         7,
		"total_price": decimal.RequireFromString("35.00"),
	})
	require.NoError(t, err)

	var reloaded models.OrderItem
	require.NoError(t, db.First(&reloaded, "id = ?", itemID).Error)
	assert.Equal(t, 7, reloaded.Qty)
	assert.True(t, reloaded.TotalPrice.Equal(decimal.RequireFromString("35.00")))
}

func TestRepositoryCreateRejectedOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	tenantID := uuid.New()
	order := newOrder(t, db, tenantID, "ORD-20260831-DD01", time.Now().UTC())

	records := []models.RejectedOrder{
		{ID: uuid.New(), TenantID: tenantID, OrderID: order.ID, ProductName: "Saline 0.9%", Qty: 2, Reason: "out of stock"},
	}
	require.NoError(t, repo.CreateRejectedOrders(context.Background(), records))
	require.NoError(t, repo.CreateRejectedOrders(context.Background(), nil))

	var count int64
	require.NoError(t, db.Model(&models.RejectedOrder{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
