package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/playforge/asc-pricer/internal/domain/pricing"
	ierr "github.com/playforge/asc-pricer/internal/errors"
)

// InMemoryStorefront implements pricing.Storefront with scripted data. It
// records every schedule submission and keeps the manual price tables in sync
// with them, so a restore followed by a read-back behaves like the live
// platform.
type InMemoryStorefront struct {
	mu sync.Mutex

	// PageSize splits catalogs into pages; zero means one page per catalog.
	PageSize int

	Purchases     []pricing.InAppPurchase
	Catalogs      map[string][]pricing.PricePoint   // purchaseID|territory -> ascending points
	Schedules     map[string]string                 // purchaseID -> scheduleID
	ManualPrices  map[string][]pricing.ManualPrice  // scheduleID -> prices
	Equalizations map[string][]pricing.ManualPrice  // basePointID -> derived prices
	Currencies    map[string]string                 // territory -> currency

	Submissions []pricing.ScheduleSubmission
	PageFetches int

	scheduleSeq int
}

func NewInMemoryStorefront() *InMemoryStorefront {
	return &InMemoryStorefront{
		Catalogs:      make(map[string][]pricing.PricePoint),
		Schedules:     make(map[string]string),
		ManualPrices:  make(map[string][]pricing.ManualPrice),
		Equalizations: make(map[string][]pricing.ManualPrice),
		Currencies:    make(map[string]string),
	}
}

func catalogKey(purchaseID, territory string) string {
	return purchaseID + "|" + territory
}

// SetCatalog installs an ascending price point catalog for a territory.
func (s *InMemoryStorefront) SetCatalog(purchaseID, territory string, points []pricing.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Catalogs[catalogKey(purchaseID, territory)] = points
}

func (s *InMemoryStorefront) ListInAppPurchases(ctx context.Context, appID string) ([]pricing.InAppPurchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pricing.InAppPurchase, len(s.Purchases))
	copy(out, s.Purchases)
	return out, nil
}

func (s *InMemoryStorefront) GetPriceScheduleID(ctx context.Context, purchaseID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.Schedules[purchaseID]
	if !ok {
		return "", ierr.NewError("purchase has no price schedule").
			WithReportableDetails(map[string]interface{}{
				"purchase_id": purchaseID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return id, nil
}

func (s *InMemoryStorefront) ListManualPrices(ctx context.Context, scheduleID string, territories []string) ([]pricing.ManualPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prices, ok := s.ManualPrices[scheduleID]
	if !ok {
		return nil, ierr.NewError("schedule not found").
			Mark(ierr.ErrNotFound)
	}
	if len(territories) == 0 {
		return append([]pricing.ManualPrice(nil), prices...), nil
	}
	allowed := make(map[string]struct{}, len(territories))
	for _, t := range territories {
		allowed[t] = struct{}{}
	}
	var filtered []pricing.ManualPrice
	for _, price := range prices {
		if _, ok := allowed[price.Territory]; ok {
			filtered = append(filtered, price)
		}
	}
	return filtered, nil
}

func (s *InMemoryStorefront) ListEqualizations(ctx context.Context, basePointID string) ([]pricing.ManualPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pricing.ManualPrice(nil), s.Equalizations[basePointID]...), nil
}

func (s *InMemoryStorefront) ListPricePoints(ctx context.Context, purchaseID, territory, cursor string) (pricing.PricePointPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PageFetches++

	points, ok := s.Catalogs[catalogKey(purchaseID, territory)]
	if !ok {
		return pricing.PricePointPage{}, ierr.NewError("unknown territory").
			WithReportableDetails(map[string]interface{}{
				"purchase_id": purchaseID,
				"territory":   territory,
			}).
			Mark(ierr.ErrNotFound)
	}

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = len(points)
	}

	start := 0
	if cursor != "" {
		offset, err := strconv.Atoi(cursor)
		if err != nil {
			return pricing.PricePointPage{}, ierr.NewError("bad cursor").Mark(ierr.ErrValidation)
		}
		start = offset
	}

	end := start + pageSize
	if end > len(points) {
		end = len(points)
	}

	page := pricing.PricePointPage{
		Points: append([]pricing.PricePoint(nil), points[start:end]...),
	}
	if end < len(points) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (s *InMemoryStorefront) ReplaceSchedule(ctx context.Context, submission pricing.ScheduleSubmission) (string, error) {
	if err := submission.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.Submissions = append(s.Submissions, submission)

	s.scheduleSeq++
	scheduleID := fmt.Sprintf("sched-%d", s.scheduleSeq)

	// materialize the submission into manual prices so read-backs observe it
	var prices []pricing.ManualPrice
	for _, entry := range submission.Entries {
		point, ok := s.findPoint(submission.PurchaseID, entry.Territory, entry.PricePointID)
		if !ok {
			return "", ierr.NewErrorf("unknown price point %s", entry.PricePointID).
				WithReportableDetails(map[string]interface{}{
					"territory": entry.Territory,
				}).
				Mark(ierr.ErrIntegration)
		}
		prices = append(prices, pricing.ManualPrice{
			Territory: entry.Territory,
			Currency:  s.Currencies[entry.Territory],
			Point:     point,
		})
	}

	s.Schedules[submission.PurchaseID] = scheduleID
	s.ManualPrices[scheduleID] = prices
	return scheduleID, nil
}

func (s *InMemoryStorefront) findPoint(purchaseID, territory, pointID string) (pricing.PricePoint, bool) {
	for _, point := range s.Catalogs[catalogKey(purchaseID, territory)] {
		if point.ID == pointID {
			return point, true
		}
	}
	return pricing.PricePoint{}, false
}

// LastSubmission returns the most recent schedule submission, if any.
func (s *InMemoryStorefront) LastSubmission() *pricing.ScheduleSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Submissions) == 0 {
		return nil
	}
	sub := s.Submissions[len(s.Submissions)-1]
	return &sub
}
