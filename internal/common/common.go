package common

import "fmt"

const (
	// Audit topics. Every draw and every raffle resolution is published so
	// disputes can be settled from an external log.
	DrawAuditTopic    = "draw_audit"
	RaffleResultTopic = "raffle_result"
)

const (
	DefaultPurchaseQuantity = 1
	MaxCardActionBatch      = 100
)

func RedisKeyRaffleResult(raffleID string) string {
	return fmt.Sprintf("raffle_result:%s", raffleID)
}
