package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/board-feeds/app/dispatch"
)

const (
	xmlContentType  = "text/xml; charset=utf-8"
	notFoundMessage = "Not found"
)

func NewHandler(resolver ResolverInterface, cache CacheStatsInterface, version string) *Handler {
	return &Handler{
		resolver: resolver,
		cache:    cache,
		version:  version,
	}
}

func (h *Handler) GetBoardFeed(c *gin.Context) {
	h.serve(c, dispatch.BoardRequest(c.Param("board")))
}

func (h *Handler) GetThreadFeed(c *gin.Context) {
	h.serve(c, dispatch.ThreadRequest(c.Param("board"), c.Param("threadId")))
}

func (h *Handler) GetSitemap(c *gin.Context) {
	h.serve(c, dispatch.SitemapRequest())
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp":     time.Now().In(time.Local).Format(time.RFC3339),
		"cache_entries": h.cache.Len(),
		"version":       h.version,
	})
}

// serve writes the resolved document, or a plain "Not found" body. Both
// carry the XML content type.
func (h *Handler) serve(c *gin.Context, req dispatch.Request) {
	doc, err := h.resolver.Resolve(c.Request.Context(), req)
	if err != nil {
		if !errors.Is(err, dispatch.ErrNotFound) {
			slog.Error("Feed resolution error", "key", req.Key(), "error", err)
		}
		c.Data(http.StatusNotFound, xmlContentType, []byte(notFoundMessage))
		return
	}

	c.Data(http.StatusOK, xmlContentType, []byte(doc))
}
