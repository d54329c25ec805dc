package domain

import (
	"context"
	"errors"

	"github.com/questx-lab/gemdrops/internal/model"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

func normalizePaging(ctx context.Context, offset, limit *int) error {
	apiCfg := xcontext.Configs(ctx).ApiServer
	if *limit == 0 {
		*limit = apiCfg.DefaultLimit
	}

	if *limit < 0 || *offset < 0 {
		return errorx.New(errorx.BadRequest, "Offset and limit must be positive")
	}

	if apiCfg.MaxLimit > 0 && *limit > apiCfg.MaxLimit {
		return errorx.New(errorx.BadRequest, "Exceed the maximum of limit (%d)", apiCfg.MaxLimit)
	}

	return nil
}

func requestUserID(ctx context.Context) (string, error) {
	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return "", errorx.New(errorx.Unauthenticated, "Missing user identity")
	}

	return userID, nil
}

// dedupIDs drops empty and repeated ids while keeping their order.
func dedupIDs(ids []string) []string {
	seen := map[string]bool{}
	result := []string{}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}

		seen[id] = true
		result = append(result, id)
	}

	return result
}

func cardActionResult(cardID string, err error) model.CardActionResult {
	if err == nil {
		return model.CardActionResult{CardID: cardID, OK: true}
	}

	var errx errorx.Error
	if !errors.As(err, &errx) {
		errx = errorx.Unknown
	}

	return model.CardActionResult{CardID: cardID, Code: int64(errx.Code), Error: errx.Message}
}
