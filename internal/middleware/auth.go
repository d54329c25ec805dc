package middleware

import (
	"context"

	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/router"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

const defaultUserIDHeader = "X-User-ID"

// RequireUser reads the user id which the upstream identity provider puts in
// the request headers.
func RequireUser() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		header := xcontext.Configs(ctx).Auth.UserIDHeader
		if header == "" {
			header = defaultUserIDHeader
		}

		userID := xcontext.HTTPRequest(ctx).Header.Get(header)
		if userID == "" {
			return nil, errorx.New(errorx.Unauthenticated, "Missing user identity")
		}

		return xcontext.WithRequestUserID(ctx, userID), nil
	}
}
