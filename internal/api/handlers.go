package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"terminology/internal/refbook"
)

// Service is what the handlers need from the refbook core.
type Service interface {
	List(ctx context.Context, asOf *time.Time) ([]refbook.Refbook, error)
	Describe(ctx context.Context, id int64, asOf time.Time) (*refbook.Card, error)
	Elements(ctx context.Context, id int64, selector string, asOf time.Time) ([]refbook.Element, error)
	CheckElement(ctx context.Context, id int64, code, value, selector string, asOf time.Time) (bool, error)
}

type refbookSummary struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// GET /refbooks?date=YYYY-MM-DD
func ListRefbooksHandler(svc Service, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// An unparsable date is treated as absent, not as an error.
		var asOf *time.Time
		if raw := c.Query("date"); raw != "" {
			if d, err := time.Parse(refbook.DateLayout, raw); err == nil {
				asOf = &d
			}
		}

		rbs, err := svc.List(c.Request.Context(), asOf)
		if err != nil {
			respondError(c, log, err)
			return
		}

		out := make([]refbookSummary, 0, len(rbs))
		for _, rb := range rbs {
			out = append(out, refbookSummary{ID: rb.ID, Code: rb.Code, Name: rb.Name})
		}
		c.JSON(http.StatusOK, gin.H{"refbooks": out})
	}
}

// GET /refbooks/:id
func DescribeRefbookHandler(svc Service, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		asOf := time.Now()
		id, ok := refbookID(c)
		if !ok {
			return
		}

		card, err := svc.Describe(c.Request.Context(), id, asOf)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, card)
	}
}

// GET /refbooks/:id/elements?version=<label>
func ElementsHandler(svc Service, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		asOf := time.Now()
		id, ok := refbookID(c)
		if !ok {
			return
		}

		elements, err := svc.Elements(c.Request.Context(), id, c.Query("version"), asOf)
		if err != nil {
			respondError(c, log, err)
			return
		}
		if elements == nil {
			elements = []refbook.Element{}
		}
		c.JSON(http.StatusOK, gin.H{"elements": elements})
	}
}

// GET /refbooks/:id/check_element?code=<c>&value=<v>&version=<label>
func CheckElementHandler(svc Service, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		asOf := time.Now()
		id, ok := refbookID(c)
		if !ok {
			return
		}

		valid, err := svc.CheckElement(c.Request.Context(), id,
			c.Query("code"), c.Query("value"), c.Query("version"), asOf)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"valid": valid})
	}
}

// GET /healthz
func HealthHandler(ping func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// refbookID parses the :id path param. A non-numeric id cannot name any
// refbook, so it gets the same 404 shape as an unknown numeric one.
func refbookID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("Refbook with ID '%s' not found.", raw),
		})
		return 0, false
	}
	return id, true
}

// respondError translates core errors into transport responses. Not-found
// kinds and the missing-parameters error carry their user-facing message;
// everything else is a storage-class failure and stays opaque.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	switch {
	case refbook.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, refbook.ErrMissingParameters):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("request_id", c.GetString("request_id")),
			slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
