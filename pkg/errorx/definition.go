package errorx

import "net/http"

var httpStatuses = map[Code]int{
	BadRequest:        http.StatusBadRequest,
	BadResponse:       http.StatusInternalServerError,
	PermissionDenied:  http.StatusForbidden,
	NotFound:          http.StatusNotFound,
	Unauthenticated:   http.StatusUnauthorized,
	AlreadyExists:     http.StatusConflict,
	Internal:          http.StatusInternalServerError,
	Unavailable:       http.StatusConflict,
	NotImplemented:    http.StatusNotImplemented,
	TooManyRequests:   http.StatusTooManyRequests,
	InsufficientFunds: http.StatusPaymentRequired,
	SoldOut:           http.StatusConflict,
	OfferingInactive:  http.StatusConflict,
	SlotsUnavailable:  http.StatusConflict,
	RaffleNotOpen:     http.StatusConflict,
	NotOwned:          http.StatusForbidden,
	InvalidState:      http.StatusConflict,
}

// HTTPStatus maps an error to the status code sent to clients. Errors which
// are not an Error are reported as internal failures.
func HTTPStatus(err error) int {
	code, ok := CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}

	if status, ok := httpStatuses[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}
