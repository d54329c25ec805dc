package model

type LedgerEntry struct {
	ID        string `json:"id"`
	Delta     int64  `json:"delta"`
	Reason    string `json:"reason"`
	Reference string `json:"reference"`
	CreatedAt string `json:"created_at"`
}

type GetBalanceRequest struct{}

type GetBalanceResponse struct {
	Balance int64 `json:"balance"`
}

type GetLedgerRequest struct {
	Offset int `form:"offset"`
	Limit  int `form:"limit"`
}

type GetLedgerResponse struct {
	Entries []LedgerEntry `json:"entries"`
}

type CreditTokensRequest struct {
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

type CreditTokensResponse struct {
	Balance int64 `json:"balance"`
}

type ReconcileBalanceRequest struct {
	UserID string `form:"user_id"`
}

type ReconcileBalanceResponse struct {
	UserID     string `json:"user_id"`
	Cached     int64  `json:"cached"`
	Computed   int64  `json:"computed"`
	Consistent bool   `json:"consistent"`
}
