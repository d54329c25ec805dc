package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

func wrapHandler[Request, Response any](
	router *Router,
	method string,
	handler HandlerFunc[Request, Response],
) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var ctx context.Context = requestContext{Context: gctx.Request.Context(), base: router.base}
		ctx = xcontext.WithHTTPRequest(ctx, gctx.Request)
		ctx = xcontext.WithRoute(ctx, gctx.FullPath())
		ctx = xcontext.WithStartTime(ctx, time.Now())

		resp, err := func() (*Response, error) {
			for _, m := range router.befores {
				newCtx, err := m(ctx)
				if err != nil {
					return nil, err
				}

				if newCtx != nil {
					ctx = newCtx
				}
			}

			var req Request
			if err := bindRequest(gctx, method, &req); err != nil {
				xcontext.Logger(ctx).Debugf("Cannot bind request: %v", err)
				return nil, errorx.New(errorx.BadRequest, "Invalid request")
			}

			return handler(ctx, &req)
		}()

		if err != nil {
			gctx.JSON(errorx.HTTPStatus(err), newErrorResponse(err))
		} else {
			gctx.JSON(http.StatusOK, newResponse(resp))
		}

		ctx = xcontext.WithError(ctx, err)
		for _, c := range router.closers {
			c(ctx)
		}
	}
}

// bindRequest fills req from the query string or the JSON body, then from
// the path parameters so they cannot be overridden by the client.
func bindRequest(gctx *gin.Context, method string, req any) error {
	switch method {
	case http.MethodGet:
		if err := gctx.ShouldBindQuery(req); err != nil {
			return err
		}
	case http.MethodPost:
		// An empty body is the same as an empty object.
		if err := gctx.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	default:
		return errors.New("unsupported method")
	}

	if len(gctx.Params) > 0 {
		return gctx.ShouldBindUri(req)
	}

	return nil
}
