package router

import (
	"context"
)

// requestContext is canceled with the HTTP request but looks up values in
// the base context of the router as a fallback.
type requestContext struct {
	context.Context
	base context.Context
}

func (c requestContext) Value(key any) any {
	if v := c.Context.Value(key); v != nil {
		return v
	}

	return c.base.Value(key)
}
