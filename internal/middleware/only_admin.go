package middleware

import (
	"context"
	"crypto/subtle"

	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/router"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

const defaultAdminKeyHeader = "X-Admin-Key"

// OnlyAdmin rejects requests without the operator key. Admin routes are
// disabled when no key is configured.
func OnlyAdmin() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		authCfg := xcontext.Configs(ctx).Auth
		if authCfg.AdminKey == "" {
			return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
		}

		header := authCfg.AdminKeyHeader
		if header == "" {
			header = defaultAdminKeyHeader
		}

		key := xcontext.HTTPRequest(ctx).Header.Get(header)
		if subtle.ConstantTimeCompare([]byte(key), []byte(authCfg.AdminKey)) != 1 {
			return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
		}

		return nil, nil
	}
}
