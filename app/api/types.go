package api

import (
	"context"

	"github.com/lysyi3m/board-feeds/app/dispatch"
)

type ResolverInterface interface {
	Resolve(ctx context.Context, req dispatch.Request) (string, error)
}

var _ ResolverInterface = (*dispatch.Dispatcher)(nil)

type CacheStatsInterface interface {
	Len() int
}

type Handler struct {
	resolver ResolverInterface
	cache    CacheStatsInterface
	version  string
}
