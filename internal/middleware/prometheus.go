package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/questx-lab/gemdrops/internal/common"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/router"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

func Prometheus() router.CloserFunc {
	return func(ctx context.Context) {
		status := http.StatusOK
		if err := xcontext.Error(ctx); err != nil {
			status = errorx.HTTPStatus(err)
		}

		route := xcontext.Route(ctx)
		duration := time.Since(xcontext.StartTime(ctx)).Seconds()

		common.PromCounters[common.HTTPRequestTotal].
			WithLabelValues(route, fmt.Sprint(status)).Inc()
		common.PromHistograms[common.HTTPRequestDurationSeconds].
			WithLabelValues(route, fmt.Sprint(status)).Observe(duration)
	}
}
