package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lysyi3m/board-feeds/app/metrics"
)

const stylesheetFile = "xml-styles.css"

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, staticDir string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())

	setupRoutes(r, handler, staticDir)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, staticDir string) {
	r.StaticFile("/"+stylesheetFile, filepath.Join(staticDir, stylesheetFile))

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/sitemap.xml", handler.GetSitemap)
	r.GET("/:board", handler.GetBoardFeed)
	r.GET("/:board/:threadId", handler.GetThreadFeed)
}
