package outbound

import (
	"context"
	"testing"
	"time"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
	"github.com/arbormed/clinicstock-backend/pkg/enums"
	"github.com/arbormed/clinicstock-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOutboundTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

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
	batches := `
CREATE TABLE IF NOT EXISTS batches (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  lot_no TEXT NOT NULL,
  qty INTEGER NOT NULL DEFAULT 0,
  expires_at DATETIME,
  location TEXT,
  unit_cost NUMERIC NOT NULL DEFAULT 0,
  received_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	txns := `
CREATE TABLE IF NOT EXISTS outbound_txns (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'plain',
  product_id TEXT NOT NULL,
  batch_id TEXT NOT NULL,
  qty INTEGER NOT NULL,
  manager_name TEXT,
  patient_name TEXT,
  chart_no TEXT,
  damaged INTEGER NOT NULL DEFAULT 0,
  defective INTEGER NOT NULL DEFAULT 0,
  memo TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(batches).Error)
	require.NoError(t, db.Exec(txns).Error)
	return db
}

func seedTxn(t *testing.T, db *gorm.DB, tenantID uuid.UUID, product *models.Product, manager, patient string, createdAt time.Time) *models.OutboundTxn {
	t.Helper()

	batch := &models.Batch{ID: uuid.New(), TenantID: tenantID, ProductID: product.ID, LotNo: "LOT-1", Qty: 10}
	require.NoError(t, db.Create(batch).Error)

	txn := &models.OutboundTxn{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Type:        enums.OutboundTypePlain,
		ProductID:   product.ID,
		BatchID:     batch.ID,
		Qty:         2,
		ManagerName: manager,
		PatientName: patient,
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(txn).Error)
	return txn
}

func seedProduct(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string) *models.Product {
	t.Helper()

	product := &models.Product{ID: uuid.New(), TenantID: tenantID, Name: name}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestRepositoryList_filters(t *testing.T) {
	db := setupOutboundTestDB(t)
	repo := NewRepository(db)

	tenantID := uuid.New()
	now := time.Now().UTC()
	saline := seedProduct(t, db, tenantID, "Saline 0.9%")
	gauze := seedProduct(t, db, tenantID, "Gauze Pads")
	seedTxn(t, db, tenantID, saline, "kim", "Park", now.Add(-2*time.Hour))
	seedTxn(t, db, tenantID, gauze, "lee", "Choi", now.Add(-time.Hour))

	page, err := repo.List(context.Background(), tenantID, pagination.Params{}, HistoryFilters{Manager: "kim"})
	require.NoError(t, err)
	require.Len(t, page.Txns, 1)
	assert.Equal(t, "kim", page.Txns[0].ManagerName)

	page, err = repo.List(context.Background(), tenantID, pagination.Params{}, HistoryFilters{ProductID: &gauze.ID})
	require.NoError(t, err)
	require.Len(t, page.Txns, 1)
	assert.Equal(t, gauze.ID, page.Txns[0].ProductID)

	page, err = repo.List(context.Background(), tenantID, pagination.Params{}, HistoryFilters{Query: "Saline"})
	require.NoError(t, err)
	require.Len(t, page.Txns, 1)
	assert.Equal(t, saline.ID, page.Txns[0].ProductID)

	from := now.Add(-90 * time.Minute)
	page, err = repo.List(context.Background(), tenantID, pagination.Params{}, HistoryFilters{From: &from})
	require.NoError(t, err)
	require.Len(t, page.Txns, 1)
	assert.Equal(t, gauze.ID, page.Txns[0].ProductID)
}

func TestRepositoryList_cursorPagination(t *testing.T) {
	db := setupOutboundTestDB(t)
	repo := NewRepository(db)

	tenantID := uuid.New()
	product := seedProduct(t, db, tenantID, "Saline 0.9%")
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedTxn(t, db, tenantID, product, "kim", "Park", base.Add(time.Duration(i)*time.Minute))
	}

	first, err := repo.List(context.Background(), tenantID, pagination.Params{Limit: 2}, HistoryFilters{})
	require.NoError(t, err)
	require.Len(t, first.Txns, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.List(context.Background(), tenantID, pagination.Params{Limit: 2, Cursor: first.NextCursor}, HistoryFilters{})
	require.NoError(t, err)
	require.Len(t, second.Txns, 1)
	assert.Empty(t, second.NextCursor)
}

func TestRepositoryFindByID_scopedToTenant(t *testing.T) {
	db := setupOutboundTestDB(t)
	repo := NewRepository(db)

	tenantID := uuid.New()
	product := seedProduct(t, db, tenantID, "Saline 0.9%")
	txn := seedTxn(t, db, tenantID, product, "kim", "Park", time.Now().UTC())

	found, err := repo.FindByID(context.Background(), tenantID, txn.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Product)
	assert.Equal(t, "Saline 0.9%", found.Product.Name)

	_, err = repo.FindByID(context.Background(), uuid.New(), txn.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
