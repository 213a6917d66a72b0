package pricing

import "context"

// Storefront is the typed view of the App Store Connect API consumed by the
// pricing services. Implementations must mark unreachable-platform failures
// with ierr.ErrHTTPClient, missing resources with ierr.ErrNotFound and
// rejected writes with ierr.ErrIntegration.
type Storefront interface {
	// ListInAppPurchases returns the app's one-time products in server order,
	// subscriptions excluded.
	ListInAppPurchases(ctx context.Context, appID string) ([]InAppPurchase, error)

	// GetPriceScheduleID returns the id of the purchase's active price
	// schedule, or ErrNotFound when no schedule exists.
	GetPriceScheduleID(ctx context.Context, purchaseID string) (string, error)

	// ListManualPrices returns the schedule's manually set prices joined with
	// their price points and territory currencies. An empty territory filter
	// returns all territories.
	ListManualPrices(ctx context.Context, scheduleID string, territories []string) ([]ManualPrice, error)

	// ListEqualizations returns the prices the platform derives from the
	// given base price point for every other territory.
	ListEqualizations(ctx context.Context, basePointID string) ([]ManualPrice, error)

	// ListPricePoints returns one page of the purchase's price point catalog
	// for a territory, ascending by customer price. An empty cursor requests
	// the first page.
	ListPricePoints(ctx context.Context, purchaseID, territory, cursor string) (PricePointPage, error)

	// ReplaceSchedule atomically replaces the purchase's price schedule and
	// returns the new schedule id.
	ReplaceSchedule(ctx context.Context, submission ScheduleSubmission) (string, error)
}
