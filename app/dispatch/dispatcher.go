package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lysyi3m/board-feeds/app/cache"
	"github.com/lysyi3m/board-feeds/app/feed"
	"github.com/lysyi3m/board-feeds/app/upstream"
)

// SitemapKey is the cache key of the sitemap index.
const SitemapKey = "sitemap.xml"

var ErrNotFound = errors.New("not found")

type Upstream interface {
	FetchBoards(ctx context.Context) ([]upstream.Board, error)
	FetchBoardThreads(ctx context.Context, slug string) (*upstream.BoardThreads, error)
	FetchThreadReplies(ctx context.Context, slug string, threadID int) (*upstream.ThreadReplies, error)
}

var _ Upstream = (*upstream.Client)(nil)

// Request identifies one feed resource: the sitemap, a board or a thread.
type Request struct {
	Sitemap  bool
	Board    string
	ThreadID string
}

func SitemapRequest() Request {
	return Request{Sitemap: true}
}

func BoardRequest(board string) Request {
	return Request{Board: board}
}

func ThreadRequest(board, threadID string) Request {
	return Request{Board: board, ThreadID: threadID}
}

func (r Request) Key() string {
	if r.Sitemap {
		return SitemapKey
	}
	return r.Board + "-" + r.ThreadID
}

type Dispatcher struct {
	cache    *cache.Cache
	client   Upstream
	renderer *feed.Renderer
}

func NewDispatcher(c *cache.Cache, client Upstream, renderer *feed.Renderer) *Dispatcher {
	return &Dispatcher{
		cache:    c,
		client:   client,
		renderer: renderer,
	}
}

// Resolve returns the document for req, from the cache when possible.
// Any upstream or render failure surfaces as ErrNotFound.
func (d *Dispatcher) Resolve(ctx context.Context, req Request) (string, error) {
	var fill cache.FillFunc

	switch {
	case req.Sitemap:
		fill = d.sitemap
	case req.ThreadID == "":
		fill = func(ctx context.Context) (string, error) {
			return d.boardFeed(ctx, req.Board)
		}
	default:
		threadID, err := strconv.Atoi(req.ThreadID)
		if err != nil || threadID < 0 {
			slog.Debug("Invalid thread id", "board", req.Board, "thread", req.ThreadID)
			return "", fmt.Errorf("%w: invalid thread id %q", ErrNotFound, req.ThreadID)
		}
		fill = func(ctx context.Context) (string, error) {
			return d.threadFeed(ctx, req.Board, threadID)
		}
	}

	key := req.Key()
	value := d.cache.Fetch(ctx, key, recoverFill(key, fill))
	if value.Absent {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value.Document, nil
}

func (d *Dispatcher) boardFeed(ctx context.Context, board string) (string, error) {
	slog.Info("Fetching board threads", "board", board)

	result, err := d.client.FetchBoardThreads(ctx, board)
	if err != nil {
		return "", fmt.Errorf("failed to fetch board %s: %w", board, err)
	}

	return d.renderer.BoardFeed(result, board)
}

func (d *Dispatcher) threadFeed(ctx context.Context, board string, threadID int) (string, error) {
	slog.Info("Fetching thread replies", "board", board, "thread", threadID)

	result, err := d.client.FetchThreadReplies(ctx, board, threadID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch thread %s/%d: %w", board, threadID, err)
	}

	return d.renderer.ThreadFeed(result, board, threadID)
}

func (d *Dispatcher) sitemap(ctx context.Context) (string, error) {
	slog.Info("Fetching boards for sitemap")

	boards, err := d.client.FetchBoards(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch boards: %w", err)
	}

	return d.renderer.Sitemap(boards)
}

// recoverFill turns a panic while building a document into a fill error so
// the key gets the absent marker instead of crashing the request.
func recoverFill(key string, fill cache.FillFunc) cache.FillFunc {
	return func(ctx context.Context) (doc string, err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Recovered from panic while building document", "key", key, "panic", r)
				err = fmt.Errorf("%w: %v", feed.ErrRender, r)
			}
		}()
		return fill(ctx)
	}
}
