package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/playforge/asc-pricer/internal/config"
	"github.com/playforge/asc-pricer/internal/domain/pricing"
	ierr "github.com/playforge/asc-pricer/internal/errors"
	"github.com/shopspring/decimal"
)

const readBackRetries = 4

// LocalizeService derives per-territory prices from the canonical base price.
type LocalizeService interface {
	// Localize first runs a full restore so the base prices are known
	// canonical, then for each product reads the post-restore prices back,
	// scales every territory by its configured percentage and resubmits a
	// schedule covering all territories. Per-product failures are logged and
	// do not stop the run.
	Localize(ctx context.Context) error
}

type localizeService struct {
	ServiceParams
}

func NewLocalizeService(params ServiceParams) LocalizeService {
	return &localizeService{
		ServiceParams: params,
	}
}

func (s *localizeService) Localize(ctx context.Context) error {
	// percentages are defined relative to the canonical base price, so the
	// restore phase must complete for all products before any read-back
	restore := NewRestoreService(s.ServiceParams)
	if _, err := restore.Restore(ctx); err != nil {
		return err
	}

	var percentages config.PercentageTable
	if path := s.Config.Pricing.PercentagesPath; path != "" {
		var err error
		percentages, err = config.LoadPercentageTable(path)
		if err != nil {
			return err
		}
	}

	purchases, err := s.Storefront.ListInAppPurchases(ctx, s.Config.AppStore.AppID)
	if err != nil {
		return err
	}
	purchases = filterPurchases(purchases, s.Config.Pricing.Product)

	schedules := NewScheduleService(s.ServiceParams)
	baseTerritory := s.Config.Pricing.BaseTerritory

	localized := 0
	for _, purchase := range purchases {
		setup, err := s.buildLocalizedSetup(ctx, purchase, baseTerritory, percentages)
		if err != nil {
			if ierr.IsNotFound(err) {
				s.Logger.Debugw("no base price on server, skipping product",
					"product", purchase.ProductID)
				continue
			}
			s.Logger.Errorw("localize failed for product",
				"product", purchase.ProductID,
				"error", err)
			continue
		}

		if _, err := schedules.Apply(ctx, *setup); err != nil {
			s.Logger.Errorw("localize submission failed for product",
				"product", purchase.ProductID,
				"error", err)
			continue
		}
		localized++
	}

	s.Logger.Infow("localize finished",
		"products_total", len(purchases),
		"products_localized", localized)
	return nil
}

// buildLocalizedSetup reads the product's post-restore prices back and scales
// each territory by its percentage. Transient transport failures during the
// read are retried with bounded backoff.
func (s *localizeService) buildLocalizedSetup(ctx context.Context, purchase pricing.InAppPurchase, baseTerritory string, percentages config.PercentageTable) (*pricing.ProductPriceSetup, error) {
	reader := NewPriceReaderService(s.ServiceParams)

	var base pricing.ManualPrice
	var locals map[string]pricing.ManualPrice

	readBack := func() error {
		var err error
		base, err = reader.GetBasePrice(ctx, purchase, baseTerritory)
		if err != nil {
			// only transient transport failures are worth retrying here; a
			// missing schedule means the product was skipped during restore
			if ierr.IsHTTPClient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		locals, err = reader.GetAllLocalPrices(ctx, purchase, baseTerritory)
		if err != nil {
			if ierr.IsHTTPClient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	if err := backoff.Retry(readBack, backoff.WithContext(backoff.WithMaxRetries(policy, readBackRetries), ctx)); err != nil {
		if permanent, ok := err.(*backoff.PermanentError); ok {
			return nil, permanent.Unwrap()
		}
		return nil, err
	}

	setup := &pricing.ProductPriceSetup{
		Product:       purchase,
		BasePrice:     base.Point.CustomerPrice,
		BaseTerritory: baseTerritory,
		LocalPrices:   make(map[string]decimal.Decimal, len(locals)),
	}

	for territory, price := range locals {
		if territory == baseTerritory {
			continue
		}
		target := price.Point.CustomerPrice.Mul(percentages.Percentage(territory))
		setup.LocalPrices[territory] = pricing.MarketablePrice(target)
	}

	s.Logger.Infow("computed localized targets",
		"product", purchase.ProductID,
		"base_price", setup.BasePrice.String(),
		"territories", len(setup.LocalPrices))
	return setup, nil
}
