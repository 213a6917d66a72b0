package service

import (
	"context"

	"github.com/playforge/asc-pricer/internal/config"
	"github.com/playforge/asc-pricer/internal/domain/pricing"
	"github.com/samber/lo"
)

// RestoreService sets every configured product back to its base-currency
// price in the base territory.
type RestoreService interface {
	// Restore loads the default price table, walks the app's products and
	// replaces each schedule with the configured base price. Products absent
	// from the table are skipped; per-product failures are logged and do not
	// stop the run. Returns the setups that were successfully applied.
	Restore(ctx context.Context) ([]pricing.ProductPriceSetup, error)
}

type restoreService struct {
	ServiceParams
}

func NewRestoreService(params ServiceParams) RestoreService {
	return &restoreService{
		ServiceParams: params,
	}
}

func (s *restoreService) Restore(ctx context.Context) ([]pricing.ProductPriceSetup, error) {
	table, err := config.LoadPriceTable(s.Config.Pricing.DefaultPricesPath)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("restoring product prices",
		"app_id", s.Config.AppStore.AppID,
		"base_territory", s.Config.Pricing.BaseTerritory,
		"configured_products", len(table))

	purchases, err := s.Storefront.ListInAppPurchases(ctx, s.Config.AppStore.AppID)
	if err != nil {
		return nil, err
	}
	purchases = filterPurchases(purchases, s.Config.Pricing.Product)

	schedules := NewScheduleService(s.ServiceParams)

	var applied []pricing.ProductPriceSetup
	for _, purchase := range purchases {
		basePrice, ok := table[purchase.ProductID]
		if !ok {
			s.Logger.Debugw("product not in price table, skipping",
				"product", purchase.ProductID)
			continue
		}

		setup := pricing.ProductPriceSetup{
			Product:       purchase,
			BasePrice:     pricing.MarketablePrice(basePrice),
			BaseTerritory: s.Config.Pricing.BaseTerritory,
		}

		if _, err := schedules.Apply(ctx, setup); err != nil {
			s.Logger.Errorw("restore failed for product",
				"product", purchase.ProductID,
				"error", err)
			continue
		}
		applied = append(applied, setup)
	}

	s.Logger.Infow("restore finished",
		"products_total", len(purchases),
		"products_applied", len(applied))
	return applied, nil
}

// filterPurchases narrows the run to a single product id when one is
// configured.
func filterPurchases(purchases []pricing.InAppPurchase, productID string) []pricing.InAppPurchase {
	if productID == "" {
		return purchases
	}
	return lo.Filter(purchases, func(p pricing.InAppPurchase, _ int) bool {
		return p.ProductID == productID
	})
}
