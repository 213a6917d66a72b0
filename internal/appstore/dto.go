package appstore

import "encoding/json"

// Wire types for the JSON:API payloads the App Store Connect API speaks.
// Only the fields this tool reads are modeled.

type resourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type relationship struct {
	Data *resourceIdentifier `json:"data,omitempty"`
}

type relationshipList struct {
	Data []resourceIdentifier `json:"data"`
}

type pageLinks struct {
	Next string `json:"next,omitempty"`
	Self string `json:"self,omitempty"`
}

type iapAttributes struct {
	Name      string `json:"name"`
	ProductID string `json:"productId"`
}

type iapResource struct {
	ID         string        `json:"id"`
	Attributes iapAttributes `json:"attributes"`
}

type iapListResponse struct {
	Data  []iapResource `json:"data"`
	Links pageLinks     `json:"links"`
}

type pricePointAttributes struct {
	CustomerPrice string `json:"customerPrice"`
	Proceeds      string `json:"proceeds"`
}

type pricePointRelationships struct {
	Territory relationship `json:"territory"`
}

type pricePointResource struct {
	ID            string                  `json:"id"`
	Attributes    pricePointAttributes    `json:"attributes"`
	Relationships pricePointRelationships `json:"relationships"`
}

type pricePointsResponse struct {
	Data     []pricePointResource `json:"data"`
	Included []json.RawMessage    `json:"included,omitempty"`
	Links    pageLinks            `json:"links"`
}

type scheduleResponse struct {
	Data *resourceIdentifier `json:"data"`
}

type manualPriceRelationships struct {
	InAppPurchasePricePoint relationship `json:"inAppPurchasePricePoint"`
	Territory               relationship `json:"territory"`
}

type manualPriceResource struct {
	ID            string                   `json:"id"`
	Relationships manualPriceRelationships `json:"relationships"`
}

type manualPricesResponse struct {
	Data     []manualPriceResource `json:"data"`
	Included []json.RawMessage     `json:"included,omitempty"`
	Links    pageLinks             `json:"links"`
}

type territoryAttributes struct {
	Currency string `json:"currency"`
}

type territoryResource struct {
	ID         string              `json:"id"`
	Attributes territoryAttributes `json:"attributes"`
}

// includedEnvelope peeks at the polymorphic "included" members to dispatch on
// their resource type before a full decode.
type includedEnvelope struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

const (
	typeInAppPurchases          = "inAppPurchases"
	typeInAppPurchasePrices     = "inAppPurchasePrices"
	typeInAppPurchasePricePoint = "inAppPurchasePricePoints"
	typeTerritories             = "territories"
	typePriceSchedules          = "inAppPurchasePriceSchedules"
)

// Schedule create request. Inline-created prices live in "included" and are
// referenced from the manualPrices relationship by their temporary ids.

type inlinePriceAttributes struct {
	StartDate *string `json:"startDate"`
}

type inlinePriceRelationships struct {
	InAppPurchasePricePoint relationship `json:"inAppPurchasePricePoint"`
}

type inlinePriceCreate struct {
	Type          string                   `json:"type"`
	ID            string                   `json:"id"`
	Attributes    inlinePriceAttributes    `json:"attributes"`
	Relationships inlinePriceRelationships `json:"relationships"`
}

type scheduleCreateRelationships struct {
	InAppPurchase relationship     `json:"inAppPurchase"`
	BaseTerritory relationship     `json:"baseTerritory"`
	ManualPrices  relationshipList `json:"manualPrices"`
}

type scheduleCreateData struct {
	Type          string                      `json:"type"`
	Relationships scheduleCreateRelationships `json:"relationships"`
}

type scheduleCreateRequest struct {
	Data     scheduleCreateData  `json:"data"`
	Included []inlinePriceCreate `json:"included"`
}

type scheduleCreateResponse struct {
	Data resourceIdentifier `json:"data"`
}

// apiError is the error document the platform returns for non-2xx responses.
type apiError struct {
	Errors []struct {
		Status string `json:"status"`
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}
