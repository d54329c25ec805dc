package model

type CardTemplate struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Tier       string `json:"tier"`
	TokenValue int64  `json:"token_value"`
}

type PrizePoolEntry struct {
	CardTemplate CardTemplate `json:"card_template"`
	Tier         string       `json:"tier"`
	Weight       float64      `json:"weight"`
	Guaranteed   bool         `json:"guaranteed"`
}

type Offering struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Kind           string           `json:"kind"`
	Price          int64            `json:"price"`
	TotalUnits     int              `json:"total_units"`
	RemainingUnits int              `json:"remaining_units"`
	Active         bool             `json:"active"`
	Pool           []PrizePoolEntry `json:"pool,omitempty"`
}

type DrawRecord struct {
	ID             string  `json:"id"`
	Reference      string  `json:"reference"`
	OfferingID     string  `json:"offering_id"`
	UserID         string  `json:"user_id"`
	Roll           float64 `json:"roll"`
	TotalWeight    float64 `json:"total_weight"`
	Guaranteed     bool    `json:"guaranteed"`
	CardTemplateID string  `json:"card_template_id"`
	CardID         string  `json:"card_id"`
	CreatedAt      string  `json:"created_at"`
}

type CreateCardTemplateRequest struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Tier       string `json:"tier"`
	TokenValue int64  `json:"token_value"`
}

type CreateCardTemplateResponse struct {
	ID string `json:"id"`
}

type CreateOfferingRequest struct {
	Name       string                 `json:"name"`
	Kind       string                 `json:"kind"`
	Price      int64                  `json:"price"`
	TotalUnits int                    `json:"total_units"`
	Pool       []CreatePrizePoolEntry `json:"pool"`
}

type CreatePrizePoolEntry struct {
	CardTemplateID string  `json:"card_template_id"`
	Weight         float64 `json:"weight"`
	Guaranteed     bool    `json:"guaranteed"`
}

type CreateOfferingResponse struct {
	ID string `json:"id"`
}

type GetOfferingsRequest struct{}

type GetOfferingsResponse struct {
	Offerings []Offering `json:"offerings"`
}

type GetOfferingRequest struct {
	OfferingID string `uri:"id"`
}

type GetOfferingResponse struct {
	Offering Offering `json:"offering"`
}

type UpdateOfferingActiveRequest struct {
	OfferingID string `uri:"id" json:"-"`
	Active     bool   `json:"active"`
}

type UpdateOfferingActiveResponse struct{}

type PurchaseOfferingRequest struct {
	OfferingID     string `uri:"id" json:"-"`
	Quantity       int    `json:"quantity"`
	IdempotencyKey string `json:"idempotency_key"`
}

type PurchaseOfferingResponse struct {
	PurchaseID string `json:"purchase_id"`
	Cards      []Card `json:"cards"`
	NewBalance int64  `json:"new_balance"`
}

type GetDrawRecordsRequest struct {
	Reference  string `form:"reference"`
	OfferingID string `form:"offering_id"`
	Offset     int    `form:"offset"`
	Limit      int    `form:"limit"`
}

type GetDrawRecordsResponse struct {
	Records []DrawRecord `json:"records"`
}
