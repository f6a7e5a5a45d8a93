package orders

import (
	"strings"

	"github.com/arbormed/clinicstock-backend/pkg/db/models"
)

// matchTier names the strategy that correlated a supplier adjustment with a
// local order item; it is logged on every match for auditability.
type matchTier string

const (
	tierItemID   matchTier = "item_id"
	tierSnapshot matchTier = "name_brand_price"
	tierProduct  matchTier = "product_id"
	tierNone     matchTier = "none"
)

// matchItem correlates one supplier adjustment with a local order item using
// the ordered fallback chain: exact item id, then the remote's denormalized
// (name, brand, unit price) snapshot, then product reference. A tier only
// matches when its candidate is unique; anything ambiguous falls through so a
// wrong line is never silently chosen.
func matchItem(items []models.OrderItem, adj Adjustment) (*models.OrderItem, matchTier) {
	if adj.ItemID != nil {
		for i := range items {
			if items[i].ID == *adj.ItemID {
				return &items[i], tierItemID
			}
		}
	}

	if adj.ProductName != "" && adj.UnitPrice != nil {
		var found *models.OrderItem
		unique := true
		for i := range items {
			if !snapshotMatches(&items[i], adj) {
				continue
			}
			if found != nil {
				unique = false
				break
			}
			found = &items[i]
		}
		if found != nil && unique {
			return found, tierSnapshot
		}
	}

	if adj.ProductID != nil {
		var found *models.OrderItem
		unique := true
		for i := range items {
			if items[i].ProductID != *adj.ProductID {
				continue
			}
			if found != nil {
				unique = false
				break
			}
			found = &items[i]
		}
		if found != nil && unique {
			return found, tierProduct
		}
	}

	return nil, tierNone
}

func snapshotMatches(item *models.OrderItem, adj Adjustment) bool {
	if item.Product == nil {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(item.Product.Name), strings.TrimSpace(adj.ProductName)) {
		return false
	}
	if adj.Brand != "" && !strings.EqualFold(strings.TrimSpace(item.Product.Brand), strings.TrimSpace(adj.Brand)) {
		return false
	}
	return item.UnitPrice.Equal(*adj.UnitPrice)
}
