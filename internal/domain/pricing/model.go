package pricing

import (
	ierr "github.com/playforge/asc-pricer/internal/errors"
	"github.com/shopspring/decimal"
)

// PricePoint is one discrete price allowed by the storefront for a territory.
// Identity is the opaque ID; ordering within a catalog page is ascending by
// CustomerPrice as returned by the platform and is trusted, never re-sorted.
type PricePoint struct {
	ID            string          `json:"id"`
	CustomerPrice decimal.Decimal `json:"customer_price"`
	Proceeds      decimal.Decimal `json:"proceeds"`
	Territory     string          `json:"territory"`
}

// PricePointPage is one page of a territory's ordered price point catalog.
// NextCursor is an opaque continuation token; empty means last page.
type PricePointPage struct {
	Points     []PricePoint `json:"points"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// Territory is storefront reference data.
type Territory struct {
	Code     string `json:"code"`
	Currency string `json:"currency"`
}

// InAppPurchase identifies one product on the storefront.
type InAppPurchase struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
}

// ManualPrice is a currently scheduled price for one territory, joined with
// its price point and the territory's currency.
type ManualPrice struct {
	Territory string     `json:"territory"`
	Currency  string     `json:"currency"`
	Point     PricePoint `json:"point"`
}

// ProductPriceSetup is the full desired pricing for one product before
// resolution. LocalPrices holds target prices keyed by territory; the base
// territory is resolved separately and must not appear there.
type ProductPriceSetup struct {
	Product       InAppPurchase              `json:"product"`
	BasePrice     decimal.Decimal            `json:"base_price"`
	BaseTerritory string                     `json:"base_territory"`
	LocalPrices   map[string]decimal.Decimal `json:"local_prices,omitempty"`
}

func (s *ProductPriceSetup) Validate() error {
	if s.BaseTerritory == "" {
		return ierr.NewError("base territory is required").
			WithHint("Product price setup needs a base territory").
			Mark(ierr.ErrValidation)
	}
	if !s.BasePrice.IsPositive() {
		return ierr.NewError("base price must be positive").
			WithReportableDetails(map[string]interface{}{
				"product":    s.Product.ProductID,
				"base_price": s.BasePrice.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if _, ok := s.LocalPrices[s.BaseTerritory]; ok {
		return ierr.NewError("base territory must not appear in local prices").
			WithReportableDetails(map[string]interface{}{
				"product":   s.Product.ProductID,
				"territory": s.BaseTerritory,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ScheduleEntry is one inline-created price inside a schedule submission.
// TemporaryID cross-links the entry within the single request; the platform
// requires inline sub-resources to reference each other by a request-scoped
// id, not a server-assigned one.
type ScheduleEntry struct {
	TemporaryID  string `json:"temporary_id"`
	Territory    string `json:"territory"`
	PricePointID string `json:"price_point_id"`
}

// ScheduleSubmission replaces a product's whole price schedule in one atomic
// call. Exactly one entry's territory must equal BaseTerritory.
type ScheduleSubmission struct {
	PurchaseID    string          `json:"purchase_id"`
	BaseTerritory string          `json:"base_territory"`
	Entries       []ScheduleEntry `json:"entries"`
}

func (s *ScheduleSubmission) Validate() error {
	if len(s.Entries) == 0 {
		return ierr.NewError("schedule submission has no entries").
			Mark(ierr.ErrValidation)
	}
	baseCount := 0
	seen := make(map[string]struct{}, len(s.Entries))
	for _, entry := range s.Entries {
		if entry.TemporaryID == "" || entry.PricePointID == "" {
			return ierr.NewError("schedule entry missing ids").
				WithReportableDetails(map[string]interface{}{
					"territory": entry.Territory,
				}).
				Mark(ierr.ErrValidation)
		}
		if _, dup := seen[entry.Territory]; dup {
			return ierr.NewError("duplicate territory in schedule submission").
				WithReportableDetails(map[string]interface{}{
					"territory": entry.Territory,
				}).
				Mark(ierr.ErrValidation)
		}
		seen[entry.Territory] = struct{}{}
		if entry.Territory == s.BaseTerritory {
			baseCount++
		}
	}
	if baseCount != 1 {
		return ierr.NewError("schedule submission must contain exactly one base territory entry").
			WithReportableDetails(map[string]interface{}{
				"base_territory": s.BaseTerritory,
				"base_entries":   baseCount,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

var marketableAdjustment = decimal.NewFromFloat(0.01)

// MarketablePrice lowers whole-number prices by 0.01 so a 5 USD target
// becomes 4.99, matching storefront marketing-price conventions. Non-whole
// prices are returned unchanged.
func MarketablePrice(price decimal.Decimal) decimal.Decimal {
	if price.IsInteger() {
		return price.Sub(marketableAdjustment)
	}
	return price
}
