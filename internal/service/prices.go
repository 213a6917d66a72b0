package service

import (
	"context"

	"github.com/playforge/asc-pricer/internal/domain/pricing"
	ierr "github.com/playforge/asc-pricer/internal/errors"
)

// PriceReaderService reads the prices currently in effect on the storefront.
type PriceReaderService interface {
	// GetBasePrice returns the purchase's manually scheduled price in the
	// base territory, or ErrNotFound when no schedule or no manual base
	// price exists (e.g. a free product).
	GetBasePrice(ctx context.Context, purchase pricing.InAppPurchase, baseTerritory string) (pricing.ManualPrice, error)

	// GetAllLocalPrices returns the purchase's price in every territory:
	// manual overrides merged over the platform's automatic equalizations of
	// the base price point. Manual entries win.
	GetAllLocalPrices(ctx context.Context, purchase pricing.InAppPurchase, baseTerritory string) (map[string]pricing.ManualPrice, error)
}

type priceReaderService struct {
	ServiceParams
}

func NewPriceReaderService(params ServiceParams) PriceReaderService {
	return &priceReaderService{
		ServiceParams: params,
	}
}

func (s *priceReaderService) GetBasePrice(ctx context.Context, purchase pricing.InAppPurchase, baseTerritory string) (pricing.ManualPrice, error) {
	scheduleID, err := s.Storefront.GetPriceScheduleID(ctx, purchase.ID)
	if err != nil {
		return pricing.ManualPrice{}, err
	}

	prices, err := s.Storefront.ListManualPrices(ctx, scheduleID, []string{baseTerritory})
	if err != nil {
		return pricing.ManualPrice{}, err
	}

	for _, price := range prices {
		if price.Territory == baseTerritory {
			return price, nil
		}
	}

	return pricing.ManualPrice{}, ierr.NewError("no manual base price set").
		WithHintf("Product %s has no manual price in %s, it might be free", purchase.ProductID, baseTerritory).
		WithReportableDetails(map[string]interface{}{
			"product":   purchase.ProductID,
			"territory": baseTerritory,
		}).
		Mark(ierr.ErrNotFound)
}

func (s *priceReaderService) GetAllLocalPrices(ctx context.Context, purchase pricing.InAppPurchase, baseTerritory string) (map[string]pricing.ManualPrice, error) {
	scheduleID, err := s.Storefront.GetPriceScheduleID(ctx, purchase.ID)
	if err != nil {
		return nil, err
	}

	results := make(map[string]pricing.ManualPrice)

	manual, err := s.Storefront.ListManualPrices(ctx, scheduleID, nil)
	if err != nil {
		return nil, err
	}
	for _, price := range manual {
		results[price.Territory] = price
	}

	base, err := s.GetBasePrice(ctx, purchase, baseTerritory)
	if err != nil {
		if ierr.IsNotFound(err) {
			// without a base point there are no equalizations to add
			s.Logger.Debugw("no base price point, returning manual prices only",
				"product", purchase.ProductID)
			return results, nil
		}
		return nil, err
	}

	equalized, err := s.Storefront.ListEqualizations(ctx, base.Point.ID)
	if err != nil {
		// equalizations are an enrichment; manual prices alone are usable
		s.Logger.Warnw("failed to fetch equalizations",
			"product", purchase.ProductID,
			"base_point", base.Point.ID,
			"error", err)
		return results, nil
	}
	for _, price := range equalized {
		if _, ok := results[price.Territory]; !ok {
			results[price.Territory] = price
		}
	}

	return results, nil
}
