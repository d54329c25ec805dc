package model

// DrawAuditEvent is published to the draw audit topic once the purchase
// holding the draw has been committed.
type DrawAuditEvent struct {
	Reference      string  `json:"reference"`
	OfferingID     string  `json:"offering_id"`
	UserID         string  `json:"user_id"`
	Roll           float64 `json:"roll"`
	TotalWeight    float64 `json:"total_weight"`
	Guaranteed     bool    `json:"guaranteed"`
	CardTemplateID string  `json:"card_template_id"`
	CardID         string  `json:"card_id"`
	Tier           string  `json:"tier"`
}

type RaffleResultEvent struct {
	Result RaffleResult `json:"result"`
}
