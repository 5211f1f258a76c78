package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the read API. All routes are GETs; the service has no
// mutation surface.
func NewRouter(svc Service, log *slog.Logger, ping func(context.Context) error) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(log))

	r.GET("/healthz", HealthHandler(ping))

	r.GET("/refbooks", ListRefbooksHandler(svc, log))
	r.GET("/refbooks/:id", DescribeRefbookHandler(svc, log))
	r.GET("/refbooks/:id/elements", ElementsHandler(svc, log))
	r.GET("/refbooks/:id/check_element", CheckElementHandler(svc, log))

	return r
}
