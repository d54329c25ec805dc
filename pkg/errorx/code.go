package errorx

type Code int

var Unknown = Error{Code: 100000, Message: "Request failed"}

const (
	// Common codes
	BadRequest       Code = 100001
	BadResponse      Code = 100002
	PermissionDenied Code = 100003
	NotFound         Code = 100004
	Unauthenticated  Code = 100005
	AlreadyExists    Code = 100006
	Internal         Code = 100007
	Unavailable      Code = 100008
	NotImplemented   Code = 100009
	TooManyRequests  Code = 100010

	// Token ledger codes
	InsufficientFunds Code = 200001

	// Inventory codes
	SoldOut          Code = 300001
	OfferingInactive Code = 300002

	// Raffle codes
	SlotsUnavailable Code = 400001
	RaffleNotOpen    Code = 400002

	// Vault codes
	NotOwned     Code = 500001
	InvalidState Code = 500002
)
