package model

type RafflePrize struct {
	Rank         int          `json:"rank"`
	CardTemplate CardTemplate `json:"card_template"`
}

type Raffle struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Status            string        `json:"status"`
	TokensPerSlot     int64         `json:"tokens_per_slot"`
	TotalSlots        int           `json:"total_slots"`
	FilledSlots       int           `json:"filled_slots"`
	ConsolationTokens int64         `json:"consolation_tokens"`
	AllowMultipleWins bool          `json:"allow_multiple_wins"`
	ConsolationPolicy string        `json:"consolation_policy"`
	Prizes            []RafflePrize `json:"prizes,omitempty"`
	ClosedAt          string        `json:"closed_at,omitempty"`
}

type RaffleSlot struct {
	SlotIndex   int    `json:"slot_index"`
	UserID      string `json:"user_id"`
	PurchasedAt string `json:"purchased_at"`
}

type RaffleWinner struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"user_id"`
	SlotIndex int    `json:"slot_index"`
	CardID    string `json:"card_id"`
}

type RaffleConsolation struct {
	UserID    string `json:"user_id"`
	SlotIndex int    `json:"slot_index"`
	Tokens    int64  `json:"tokens"`
}

type RaffleResult struct {
	RaffleID          string              `json:"raffle_id"`
	Winners           []RaffleWinner      `json:"winners"`
	Consolations      []RaffleConsolation `json:"consolations"`
	ConsolationPaidTo []string            `json:"consolation_paid_to"`
	ClosedAt          string              `json:"closed_at"`
}

type CreateRaffleRequest struct {
	Name              string `json:"name"`
	TokensPerSlot     int64  `json:"tokens_per_slot"`
	TotalSlots        int    `json:"total_slots"`
	ConsolationTokens int64  `json:"consolation_tokens"`

	// Prizes are card template ids, the first one is the rank 1 prize.
	Prizes []string `json:"prizes"`

	// Nil values fall back to the server defaults.
	AllowMultipleWins *bool  `json:"allow_multiple_wins"`
	ConsolationPolicy string `json:"consolation_policy"`
}

type CreateRaffleResponse struct {
	ID string `json:"id"`
}

type GetRafflesRequest struct {
	Status string `form:"status"`
	Offset int    `form:"offset"`
	Limit  int    `form:"limit"`
}

type GetRafflesResponse struct {
	Raffles []Raffle `json:"raffles"`
}

type GetRaffleRequest struct {
	RaffleID string `uri:"id"`
}

type GetRaffleResponse struct {
	Raffle Raffle `json:"raffle"`
}

type BuyRaffleSlotsRequest struct {
	RaffleID string `uri:"id" json:"-"`
	Quantity int    `json:"quantity"`
}

type BuyRaffleSlotsResponse struct {
	Slots      []RaffleSlot `json:"slots"`
	NewBalance int64        `json:"new_balance"`
}

type GetRaffleResultRequest struct {
	RaffleID string `uri:"id"`
}

type GetRaffleResultResponse struct {
	Result RaffleResult `json:"result"`
}
