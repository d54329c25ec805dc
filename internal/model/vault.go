package model

type Card struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Tier       string `json:"tier"`
	TokenValue int64  `json:"token_value"`
	State      string `json:"state"`
	Source     string `json:"source"`
	CreatedAt  string `json:"created_at"`
}

// CardActionResult is the outcome of a vault action on a single card. Code
// and Error are empty when the action succeeded.
type CardActionResult struct {
	CardID string `json:"card_id"`
	OK     bool   `json:"ok"`
	Code   int64  `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

type GetVaultRequest struct {
	Tier     string `form:"tier"`
	Category string `form:"category"`
	Search   string `form:"search"`
	Sort     string `form:"sort"`
	Order    string `form:"order"`
	Offset   int    `form:"offset"`
	Limit    int    `form:"limit"`
}

type GetVaultResponse struct {
	Cards []Card `json:"cards"`
}

type RefundCardsRequest struct {
	CardIDs []string `json:"card_ids"`
}

type RefundCardsResponse struct {
	Results    []CardActionResult `json:"results"`
	NewBalance int64              `json:"new_balance"`
}

type ShipCardsRequest struct {
	CardIDs []string `json:"card_ids"`
}

type ShipCardsResponse struct {
	Results []CardActionResult `json:"results"`
}

type FulfillShipmentRequest struct {
	CardIDs []string `json:"card_ids"`
}

type FulfillShipmentResponse struct {
	Results []CardActionResult `json:"results"`
}
