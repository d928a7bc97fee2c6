package dto

import (
	"time"

	"bizzplus/internal/core/id"
	"bizzplus/internal/core/types"
	"bizzplus/internal/domain/catalog"
)

// SetPriceRequest is the body of PUT /skus/:id/price.
type SetPriceRequest struct {
	Price         types.Money `json:"price"`
	Currency      string      `json:"currency"`
	EffectiveFrom *time.Time  `json:"effectiveFrom"`
}

// ToInput converts the request into the service input.
func (r SetPriceRequest) ToInput(skuID id.ID) catalog.SetPriceInput {
	in := catalog.SetPriceInput{SKUID: skuID, Price: r.Price, Currency: r.Currency}
	if r.EffectiveFrom != nil {
		in.EffectiveFrom = *r.EffectiveFrom
	}
	return in
}

// IngestSKUResponse is the body returned by POST /ingest/sku.
type IngestSKUResponse struct {
	SKU     *catalog.SKU `json:"sku"`
	Created bool         `json:"created"`
}

// DeltaResponse is the body returned by POST /ingest/delta.
type DeltaResponse struct {
	Results []catalog.DeltaResult `json:"results"`
	Applied int                   `json:"applied"`
	Failed  int                   `json:"failed"`
}

// NewDeltaResponse counts applied and failed changes.
func NewDeltaResponse(results []catalog.DeltaResult) DeltaResponse {
	resp := DeltaResponse{Results: results}
	for _, r := range results {
		if r.Success {
			resp.Applied++
		} else {
			resp.Failed++
		}
	}
	return resp
}
