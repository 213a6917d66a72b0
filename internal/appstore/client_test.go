package appstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/playforge/asc-pricer/internal/domain/pricing"
	ierr "github.com/playforge/asc-pricer/internal/errors"
	"github.com/playforge/asc-pricer/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) (*client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	_, pemBytes := testPrivateKeyPEM(t)
	tokens, err := NewTokenProvider("KEY123", "ISSUER456", pemBytes)
	require.NoError(t, err)

	c := newClientWithTokens(server.URL, tokens, logger.GetLogger())
	// keep failing tests fast
	c.http.RetryMax = 0
	return c, server
}

func TestListPricePointsFollowsCursor(t *testing.T) {
	var server *httptest.Server
	var sawAuth bool

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/inAppPurchases/iap-1/pricePoints", func(w http.ResponseWriter, r *http.Request) {
		sawAuth = strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")
		assert.Equal(t, "USA", r.URL.Query().Get("filter[territory]"))

		if r.URL.Query().Get("cursor") == "" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{
						"type":       "inAppPurchasePricePoints",
						"id":         "pp-1",
						"attributes": map[string]string{"customerPrice": "0.99", "proceeds": "0.69"},
					},
				},
				"links": map[string]string{
					"next": server.URL + "/v2/inAppPurchases/iap-1/pricePoints?cursor=abc&filter%5Bterritory%5D=USA",
				},
			})
			return
		}

		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"type":       "inAppPurchasePricePoints",
					"id":         "pp-2",
					"attributes": map[string]string{"customerPrice": "1.99", "proceeds": "1.39"},
				},
			},
			"links": map[string]string{},
		})
	})

	c, server := testClient(t, mux)

	page, err := c.ListPricePoints(context.Background(), "iap-1", "USA", "")
	require.NoError(t, err)
	require.Len(t, page.Points, 1)
	assert.Equal(t, "pp-1", page.Points[0].ID)
	assert.Equal(t, "0.99", page.Points[0].CustomerPrice.String())
	assert.Equal(t, "USA", page.Points[0].Territory)
	require.NotEmpty(t, page.NextCursor)
	assert.True(t, sawAuth)

	next, err := c.ListPricePoints(context.Background(), "iap-1", "USA", page.NextCursor)
	require.NoError(t, err)
	require.Len(t, next.Points, 1)
	assert.Equal(t, "pp-2", next.Points[0].ID)
	assert.Empty(t, next.NextCursor)
}

func TestListInAppPurchases(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/apps/app-1/inAppPurchasesV2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"type":       "inAppPurchases",
					"id":         "iap-1",
					"attributes": map[string]string{"name": "Gold", "productId": "com.example.gold"},
				},
				{
					"type":       "inAppPurchases",
					"id":         "iap-2",
					"attributes": map[string]string{"name": "Silver", "productId": "com.example.silver"},
				},
			},
			"links": map[string]string{},
		})
	})

	c, _ := testClient(t, mux)

	purchases, err := c.ListInAppPurchases(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, purchases, 2)
	assert.Equal(t, "com.example.gold", purchases[0].ProductID)
	assert.Equal(t, "Gold", purchases[0].Name)
}

func TestListManualPricesJoinsIncluded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/inAppPurchasePriceSchedules/sched-1/manualPrices", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"type": "inAppPurchasePrices",
					"id":   "price-1",
					"relationships": map[string]interface{}{
						"inAppPurchasePricePoint": map[string]interface{}{
							"data": map[string]string{"type": "inAppPurchasePricePoints", "id": "pp-1"},
						},
						"territory": map[string]interface{}{
							"data": map[string]string{"type": "territories", "id": "USA"},
						},
					},
				},
			},
			"included": []map[string]interface{}{
				{
					"type":       "inAppPurchasePricePoints",
					"id":         "pp-1",
					"attributes": map[string]string{"customerPrice": "4.99", "proceeds": "3.49"},
				},
				{
					"type":       "territories",
					"id":         "USA",
					"attributes": map[string]string{"currency": "USD"},
				},
			},
			"links": map[string]string{},
		})
	})

	c, _ := testClient(t, mux)

	prices, err := c.ListManualPrices(context.Background(), "sched-1", []string{"USA"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "USA", prices[0].Territory)
	assert.Equal(t, "USD", prices[0].Currency)
	assert.Equal(t, "4.99", prices[0].Point.CustomerPrice.String())
}

func TestGetPriceScheduleIDNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/inAppPurchases/iap-1/iapPriceSchedule", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": nil})
	})

	c, _ := testClient(t, mux)

	_, err := c.GetPriceScheduleID(context.Background(), "iap-1")
	assert.True(t, ierr.IsNotFound(err))
}

func TestErrorClassification(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/inAppPurchases/missing/iapPriceSchedule", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/inAppPurchasePriceSchedules", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{
				{"status": "409", "code": "ENTITY_ERROR", "title": "invalid entity", "detail": "price point does not exist"},
			},
		})
	})

	c, _ := testClient(t, mux)

	_, err := c.GetPriceScheduleID(context.Background(), "missing")
	assert.True(t, ierr.IsNotFound(err))

	submission := pricing.ScheduleSubmission{
		PurchaseID:    "iap-1",
		BaseTerritory: "USA",
		Entries: []pricing.ScheduleEntry{
			{TemporaryID: "${a}", Territory: "USA", PricePointID: "bogus"},
		},
	}
	_, err = c.ReplaceSchedule(context.Background(), submission)
	require.Error(t, err)
	assert.True(t, ierr.IsIntegration(err))
	assert.Equal(t, "price point does not exist", ierr.Hint(err))
}

func TestReplaceScheduleRequestShape(t *testing.T) {
	var captured scheduleCreateRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/inAppPurchasePriceSchedules", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"type": "inAppPurchasePriceSchedules", "id": "sched-9"},
		})
	})

	c, _ := testClient(t, mux)

	submission := pricing.ScheduleSubmission{
		PurchaseID:    "iap-1",
		BaseTerritory: "USA",
		Entries: []pricing.ScheduleEntry{
			{TemporaryID: "${base}", Territory: "USA", PricePointID: "pp-usa"},
			{TemporaryID: "${deu}", Territory: "DEU", PricePointID: "pp-deu"},
		},
	}

	scheduleID, err := c.ReplaceSchedule(context.Background(), submission)
	require.NoError(t, err)
	assert.Equal(t, "sched-9", scheduleID)

	assert.Equal(t, typePriceSchedules, captured.Data.Type)
	require.NotNil(t, captured.Data.Relationships.InAppPurchase.Data)
	assert.Equal(t, "iap-1", captured.Data.Relationships.InAppPurchase.Data.ID)
	require.NotNil(t, captured.Data.Relationships.BaseTerritory.Data)
	assert.Equal(t, "USA", captured.Data.Relationships.BaseTerritory.Data.ID)

	// the manualPrices relationship references the inline-created prices by
	// their temporary ids
	require.Len(t, captured.Data.Relationships.ManualPrices.Data, 2)
	require.Len(t, captured.Included, 2)
	for i, rel := range captured.Data.Relationships.ManualPrices.Data {
		assert.Equal(t, typeInAppPurchasePrices, rel.Type)
		assert.Equal(t, captured.Included[i].ID, rel.ID)
	}
	assert.Equal(t, "pp-usa", captured.Included[0].Relationships.InAppPurchasePricePoint.Data.ID)
	assert.Equal(t, "pp-deu", captured.Included[1].Relationships.InAppPurchasePricePoint.Data.ID)
}
