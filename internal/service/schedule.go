package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/playforge/asc-pricer/internal/domain/pricing"
	ierr "github.com/playforge/asc-pricer/internal/errors"
	"github.com/samber/lo"
)

// ScheduleService turns a desired product price setup into a schedule
// submission and pushes it to the storefront.
type ScheduleService interface {
	// Apply resolves every territory in the setup to a concrete price point,
	// builds the replacement schedule and submits it. Territories whose
	// target cannot be resolved are skipped with a warning; an unresolvable
	// base territory fails the whole setup. Returns the new schedule id.
	Apply(ctx context.Context, setup pricing.ProductPriceSetup) (string, error)
}

type scheduleService struct {
	ServiceParams
}

func NewScheduleService(params ServiceParams) ScheduleService {
	return &scheduleService{
		ServiceParams: params,
	}
}

// BuildSchedule assembles the atomic schedule replacement request: the base
// entry first, then one entry per local territory in deterministic order.
// Entries carry request-scoped temporary ids so the inline-created prices can
// reference each other inside the single call.
func BuildSchedule(purchaseID, baseTerritory string, base pricing.PricePoint, locals map[string]pricing.PricePoint) (pricing.ScheduleSubmission, error) {
	submission := pricing.ScheduleSubmission{
		PurchaseID:    purchaseID,
		BaseTerritory: baseTerritory,
		Entries: []pricing.ScheduleEntry{
			{
				TemporaryID:  temporaryID(),
				Territory:    baseTerritory,
				PricePointID: base.ID,
			},
		},
	}

	territories := lo.Keys(locals)
	sort.Strings(territories)
	for _, territory := range territories {
		if territory == baseTerritory {
			continue
		}
		submission.Entries = append(submission.Entries, pricing.ScheduleEntry{
			TemporaryID:  temporaryID(),
			Territory:    territory,
			PricePointID: locals[territory].ID,
		})
	}

	if err := submission.Validate(); err != nil {
		return pricing.ScheduleSubmission{}, err
	}
	return submission, nil
}

// temporaryID mirrors the ${guid} placeholder format the platform expects
// for request-scoped resource ids.
func temporaryID() string {
	return fmt.Sprintf("${%s}", uuid.NewString())
}

func (s *scheduleService) Apply(ctx context.Context, setup pricing.ProductPriceSetup) (string, error) {
	if err := setup.Validate(); err != nil {
		return "", err
	}

	resolver := NewResolverService(s.ServiceParams)

	s.Logger.Infow("preparing price schedule",
		"product", setup.Product.ProductID,
		"base_territory", setup.BaseTerritory,
		"base_price", setup.BasePrice.String(),
		"local_territories", len(setup.LocalPrices))

	basePoint, err := resolver.ResolveNearest(ctx, setup.Product.ID, setup.BaseTerritory, setup.BasePrice)
	if err != nil {
		return "", ierr.WithError(err).
			WithHintf("Unable to resolve base price for %s in %s", setup.Product.ProductID, setup.BaseTerritory).
			Mark(ierr.ErrNotFound)
	}

	locals := make(map[string]pricing.PricePoint, len(setup.LocalPrices))
	for territory, target := range setup.LocalPrices {
		point, err := resolver.ResolveNearest(ctx, setup.Product.ID, territory, target)
		if err != nil {
			// a failed territory never blocks the rest of the schedule
			s.Logger.Warnw("could not resolve price point, skipping territory",
				"product", setup.Product.ProductID,
				"territory", territory,
				"target", target.String(),
				"error", err)
			continue
		}
		locals[territory] = point
	}

	submission, err := BuildSchedule(setup.Product.ID, setup.BaseTerritory, basePoint, locals)
	if err != nil {
		return "", err
	}

	scheduleID, err := s.Storefront.ReplaceSchedule(ctx, submission)
	if err != nil {
		return "", err
	}

	s.Logger.Infow("schedule replaced",
		"product", setup.Product.ProductID,
		"schedule_id", scheduleID,
		"entries", len(submission.Entries),
		"base_price", basePoint.CustomerPrice.String())
	return scheduleID, nil
}
