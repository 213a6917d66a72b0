package service

import (
	"context"

	"github.com/playforge/asc-pricer/internal/domain/pricing"
	ierr "github.com/playforge/asc-pricer/internal/errors"
	"github.com/shopspring/decimal"
)

// ResolverService finds the storefront price point nearest to a target price.
type ResolverService interface {
	// ResolveNearest scans the territory's ascending price point catalog and
	// returns the point whose customer price is closest to target. On an
	// exact tie the lower-priced point wins. A target below the catalog
	// minimum resolves to the first point, a target above the maximum to the
	// last. An empty catalog returns ErrNotFound.
	ResolveNearest(ctx context.Context, purchaseID, territory string, target decimal.Decimal) (pricing.PricePoint, error)
}

type resolverService struct {
	ServiceParams
}

func NewResolverService(params ServiceParams) ResolverService {
	return &resolverService{
		ServiceParams: params,
	}
}

// scanState is the accumulator carried across page boundaries: the most
// recent point seen whose price is strictly below the target.
type scanState struct {
	lastBelow *pricing.PricePoint
}

// scanPage folds one catalog page into the scan. It returns the resolved
// point as soon as a crossing is found; otherwise it returns nil and the
// state to carry into the next page. Page order is trusted to be ascending.
func scanPage(points []pricing.PricePoint, target decimal.Decimal, state scanState) (*pricing.PricePoint, scanState) {
	for i := range points {
		current := &points[i]
		if current.CustomerPrice.GreaterThanOrEqual(target) {
			if state.lastBelow == nil {
				// no smaller candidate exists, the crossing point is nearest
				return current, state
			}
			below := target.Sub(state.lastBelow.CustomerPrice)
			above := current.CustomerPrice.Sub(target)
			// ties favor the lower price
			if below.LessThanOrEqual(above) {
				return state.lastBelow, state
			}
			return current, state
		}
		state.lastBelow = current
	}
	return nil, state
}

func (s *resolverService) ResolveNearest(ctx context.Context, purchaseID, territory string, target decimal.Decimal) (pricing.PricePoint, error) {
	s.Logger.Debugw("resolving nearest price point",
		"purchase_id", purchaseID,
		"territory", territory,
		"target", target.String())

	state := scanState{}
	cursor := ""
	pageCount := 0

	for {
		pageCount++
		page, err := s.Storefront.ListPricePoints(ctx, purchaseID, territory, cursor)
		if err != nil {
			return pricing.PricePoint{}, err
		}

		match, next := scanPage(page.Points, target, state)
		if match != nil {
			s.Logger.Debugw("resolved price point",
				"territory", territory,
				"target", target.String(),
				"resolved", match.CustomerPrice.String(),
				"point_id", match.ID,
				"pages", pageCount)
			return *match, nil
		}
		state = next

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	// target exceeds every available price: the maximum is the closest
	// achievable point
	if state.lastBelow != nil {
		s.Logger.Debugw("target above catalog maximum, using maximum",
			"territory", territory,
			"target", target.String(),
			"resolved", state.lastBelow.CustomerPrice.String())
		return *state.lastBelow, nil
	}

	return pricing.PricePoint{}, ierr.NewError("no price points available").
		WithHintf("Territory %s has no price point catalog for this purchase", territory).
		WithReportableDetails(map[string]interface{}{
			"purchase_id": purchaseID,
			"territory":   territory,
			"target":      target.String(),
		}).
		Mark(ierr.ErrNotFound)
}
