package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/playforge/asc-pricer/internal/config"
	"github.com/playforge/asc-pricer/internal/domain/pricing"
	ierr "github.com/playforge/asc-pricer/internal/errors"
	"github.com/playforge/asc-pricer/internal/logger"
	"github.com/shopspring/decimal"
)

const pageLimit = 200

// client implements pricing.Storefront over the App Store Connect REST API.
// Transient transport failures are retried with bounded backoff by the
// underlying retryable HTTP client; error classification happens per response.
type client struct {
	baseURL string
	http    *retryablehttp.Client
	tokens  *TokenProvider
	logger  *logger.Logger
}

// NewClient builds a storefront client from configuration, loading the
// signing key from disk.
func NewClient(cfg *config.Configuration, log *logger.Logger) (pricing.Storefront, error) {
	keyPEM, err := os.ReadFile(cfg.AppStore.PrivateKeyPath)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Unable to read private key %s", cfg.AppStore.PrivateKeyPath).
			Mark(ierr.ErrValidation)
	}

	tokens, err := NewTokenProvider(cfg.AppStore.KeyID, cfg.AppStore.IssuerID, keyPEM)
	if err != nil {
		return nil, err
	}

	return newClientWithTokens(cfg.AppStore.BaseURL, tokens, log), nil
}

func newClientWithTokens(baseURL string, tokens *TokenProvider, log *logger.Logger) *client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 4
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 8 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = log.GetRetryableHTTPLogger()

	return &client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    rc,
		tokens:  tokens,
		logger:  log,
	}
}

func (c *client) ListInAppPurchases(ctx context.Context, appID string) ([]pricing.InAppPurchase, error) {
	if appID == "" {
		return nil, ierr.NewError("app id is required").
			WithHint("Set appstore.app_id or pass --app-id").
			Mark(ierr.ErrValidation)
	}

	path := "/v1/apps/" + appID + "/inAppPurchasesV2?limit=" + strconv.Itoa(pageLimit)

	var purchases []pricing.InAppPurchase
	for path != "" {
		var resp iapListResponse
		if err := c.get(ctx, path, &resp); err != nil {
			return nil, err
		}
		for _, res := range resp.Data {
			purchases = append(purchases, pricing.InAppPurchase{
				ID:        res.ID,
				ProductID: res.Attributes.ProductID,
				Name:      res.Attributes.Name,
			})
		}
		path = resp.Links.Next
	}
	return purchases, nil
}

func (c *client) GetPriceScheduleID(ctx context.Context, purchaseID string) (string, error) {
	var resp scheduleResponse
	if err := c.get(ctx, "/v2/inAppPurchases/"+purchaseID+"/iapPriceSchedule", &resp); err != nil {
		return "", err
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return "", ierr.NewError("purchase has no price schedule").
			WithReportableDetails(map[string]interface{}{
				"purchase_id": purchaseID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return resp.Data.ID, nil
}

func (c *client) ListManualPrices(ctx context.Context, scheduleID string, territories []string) ([]pricing.ManualPrice, error) {
	query := url.Values{}
	query.Set("include", "inAppPurchasePricePoint,territory")
	query.Set("limit", strconv.Itoa(pageLimit))
	if len(territories) > 0 {
		query.Set("filter[territory]", strings.Join(territories, ","))
	}
	path := "/v1/inAppPurchasePriceSchedules/" + scheduleID + "/manualPrices?" + query.Encode()

	var prices []pricing.ManualPrice
	for path != "" {
		var resp manualPricesResponse
		if err := c.get(ctx, path, &resp); err != nil {
			return nil, err
		}

		points, currencies := decodeIncluded(resp.Included)
		for _, entry := range resp.Data {
			territoryID := relationshipID(entry.Relationships.Territory)
			pointID := relationshipID(entry.Relationships.InAppPurchasePricePoint)
			if territoryID == "" || pointID == "" {
				continue
			}
			res, ok := points[pointID]
			if !ok {
				continue
			}
			point, err := c.toPricePoint(res, territoryID)
			if err != nil {
				continue
			}
			prices = append(prices, pricing.ManualPrice{
				Territory: territoryID,
				Currency:  currencies[territoryID],
				Point:     point,
			})
		}
		path = resp.Links.Next
	}
	return prices, nil
}

func (c *client) ListEqualizations(ctx context.Context, basePointID string) ([]pricing.ManualPrice, error) {
	path := "/v2/inAppPurchasePricePoints/" + basePointID + "/equalizations?include=territory&limit=" + strconv.Itoa(pageLimit)

	var prices []pricing.ManualPrice
	for path != "" {
		var resp pricePointsResponse
		if err := c.get(ctx, path, &resp); err != nil {
			return nil, err
		}

		_, currencies := decodeIncluded(resp.Included)
		for _, res := range resp.Data {
			territoryID := relationshipID(res.Relationships.Territory)
			if territoryID == "" {
				continue
			}
			point, err := c.toPricePoint(res, territoryID)
			if err != nil {
				continue
			}
			prices = append(prices, pricing.ManualPrice{
				Territory: territoryID,
				Currency:  currencies[territoryID],
				Point:     point,
			})
		}
		path = resp.Links.Next
	}
	return prices, nil
}

func (c *client) ListPricePoints(ctx context.Context, purchaseID, territory, cursor string) (pricing.PricePointPage, error) {
	path := cursor
	if path == "" {
		query := url.Values{}
		query.Set("filter[territory]", territory)
		query.Set("limit", strconv.Itoa(pageLimit))
		path = "/v2/inAppPurchases/" + purchaseID + "/pricePoints?" + query.Encode()
	}

	var resp pricePointsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return pricing.PricePointPage{}, err
	}

	page := pricing.PricePointPage{
		Points:     make([]pricing.PricePoint, 0, len(resp.Data)),
		NextCursor: resp.Links.Next,
	}
	for _, res := range resp.Data {
		point, err := c.toPricePoint(res, territory)
		if err != nil {
			c.logger.Warnw("skipping unparsable price point",
				"point_id", res.ID,
				"territory", territory,
				"error", err)
			continue
		}
		page.Points = append(page.Points, point)
	}
	return page, nil
}

func (c *client) ReplaceSchedule(ctx context.Context, submission pricing.ScheduleSubmission) (string, error) {
	if err := submission.Validate(); err != nil {
		return "", err
	}

	req := scheduleCreateRequest{
		Data: scheduleCreateData{
			Type: typePriceSchedules,
			Relationships: scheduleCreateRelationships{
				InAppPurchase: relationship{Data: &resourceIdentifier{
					Type: typeInAppPurchases,
					ID:   submission.PurchaseID,
				}},
				BaseTerritory: relationship{Data: &resourceIdentifier{
					Type: typeTerritories,
					ID:   submission.BaseTerritory,
				}},
			},
		},
	}
	for _, entry := range submission.Entries {
		req.Data.Relationships.ManualPrices.Data = append(req.Data.Relationships.ManualPrices.Data, resourceIdentifier{
			Type: typeInAppPurchasePrices,
			ID:   entry.TemporaryID,
		})
		req.Included = append(req.Included, inlinePriceCreate{
			Type: typeInAppPurchasePrices,
			ID:   entry.TemporaryID,
			Relationships: inlinePriceRelationships{
				InAppPurchasePricePoint: relationship{Data: &resourceIdentifier{
					Type: typeInAppPurchasePricePoint,
					ID:   entry.PricePointID,
				}},
			},
		})
	}

	var resp scheduleCreateResponse
	if err := c.do(ctx, http.MethodPost, "/v1/inAppPurchasePriceSchedules", req, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}

func (c *client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *client) do(ctx context.Context, method, path string, body, out interface{}) error {
	endpoint := path
	if !strings.HasPrefix(path, "http") {
		endpoint = c.baseURL + path
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Unable to marshal request body").
				Mark(ierr.ErrInternal)
		}
		payload = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Unable to build request").
			Mark(ierr.ErrInternal)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("App Store Connect is unreachable (%s %s)", method, path).
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Unable to read response body").
			Mark(ierr.ErrHTTPClient)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return ierr.WithError(err).
				WithHintf("Unexpected response from %s", path).
				Mark(ierr.ErrIntegration)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ierr.NewError("resource not found").
			WithReportableDetails(map[string]interface{}{
				"path": path,
			}).
			Mark(ierr.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ierr.NewErrorf("authentication failed with status %d", resp.StatusCode).
			WithHint("Check key id, issuer id and private key").
			Mark(ierr.ErrHTTPClient)
	default:
		return ierr.NewErrorf("request failed with status %d", resp.StatusCode).
			WithHint(apiErrorDetail(respBody)).
			WithReportableDetails(map[string]interface{}{
				"path":   path,
				"status": resp.StatusCode,
				"body":   string(respBody),
			}).
			Mark(ierr.ErrIntegration)
	}
}

// decodeIncluded splits the polymorphic "included" members into price points
// keyed by id and territory currencies keyed by territory id.
func decodeIncluded(included []json.RawMessage) (map[string]pricePointResource, map[string]string) {
	points := make(map[string]pricePointResource)
	currencies := make(map[string]string)

	for _, raw := range included {
		var envelope includedEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			continue
		}
		switch envelope.Type {
		case typeInAppPurchasePricePoint:
			var point pricePointResource
			if err := json.Unmarshal(raw, &point); err == nil {
				points[point.ID] = point
			}
		case typeTerritories:
			var territory territoryResource
			if err := json.Unmarshal(raw, &territory); err == nil {
				currencies[territory.ID] = territory.Attributes.Currency
			}
		}
	}
	return points, currencies
}

func (c *client) toPricePoint(res pricePointResource, territory string) (pricing.PricePoint, error) {
	price, err := decimal.NewFromString(res.Attributes.CustomerPrice)
	if err != nil {
		return pricing.PricePoint{}, ierr.WithError(err).
			WithHintf("Price point %s has a non-decimal customer price", res.ID).
			Mark(ierr.ErrIntegration)
	}
	// proceeds are informational; tolerate their absence
	proceeds, err := decimal.NewFromString(res.Attributes.Proceeds)
	if err != nil {
		proceeds = decimal.Zero
	}
	if rel := relationshipID(res.Relationships.Territory); rel != "" {
		territory = rel
	}
	return pricing.PricePoint{
		ID:            res.ID,
		CustomerPrice: price,
		Proceeds:      proceeds,
		Territory:     territory,
	}, nil
}

func relationshipID(rel relationship) string {
	if rel.Data == nil {
		return ""
	}
	return rel.Data.ID
}

func apiErrorDetail(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil || len(apiErr.Errors) == 0 {
		return "App Store Connect rejected the request"
	}
	first := apiErr.Errors[0]
	if first.Detail != "" {
		return first.Detail
	}
	return first.Title
}

