// Attribution HTTP handlers.
//
// This file exposes the recompute trigger and the rollup read endpoint:
//   - POST /clients/{id}/attribution/recompute   (one range or all ranges)
//   - GET  /clients/{id}/attribution              (paginated, ETag support)
//
// Handlers are transport-thin: they parse the range and paging, call the
// service and translate its sentinel errors into the ErrorResponse envelope.
// Idempotent replays of recompute are served by middleware before these run.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuvraj-bhatia/virio-pulse/internal/domain"
	"github.com/yuvraj-bhatia/virio-pulse/internal/services"
	"github.com/yuvraj-bhatia/virio-pulse/internal/utils"
)

// AttributionService is the service contract consumed by the handlers.
// Implementations must honor ctx for cancellation.
type AttributionService interface {
	Recompute(ctx context.Context, clientID string, rangeDays int) (services.RecomputeResult, error)
	RecomputeAll(ctx context.Context, clientID string) ([]services.RecomputeResult, error)
	ListResults(ctx context.Context, clientID string, rangeDays, page, pageSize int) ([]domain.AttributionResult, int64, error)
	ResultsStats(ctx context.Context, clientID string, rangeDays int) (int64, *time.Time, error)
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	attrSvc AttributionService
}

// New constructs Handlers bound to svc.
func New(svc AttributionService) *Handlers {
	return &Handlers{attrSvc: svc}
}

// defaultListRange is used by GET when ?range is absent.
const defaultListRange = 30

// RecomputeResponse lists the ranges recomputed by one request.
type RecomputeResponse struct {
	Ranges []services.RecomputeResult `json:"ranges"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListAttributionResponse wraps a page of rollup rows of one range.
type ListAttributionResponse struct {
	RangeDays  int                        `json:"range_days" example:"30"`
	Results    []domain.AttributionResult `json:"results"`
	Pagination Pagination                 `json:"pagination"`
}

// parseRange reads ?range. An absent value yields def; a non-integer is an
// error. Whether the integer is a supported range is the service's call.
func parseRange(c *gin.Context, def int) (int, error) {
	raw := c.Query("range")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("range must be an integer: %q", raw)
	}
	return n, nil
}

// writeServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with fallbackCode.
func writeServiceError(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrClientNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "client not found")
	case errors.Is(err, services.ErrUnsupportedRange):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "range must be one of 7, 30, 90")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

// RecomputeAttribution godoc
// @ID          recomputeAttribution
// @Summary     Recompute attribution rollups
// @Description Rebuilds the materialized rollups of a client for one window range, or for 7, 30 and 90 days in sequence when range is omitted. Retries carrying the same Idempotency-Key get the first successful response back.
// @Tags        Attribution
// @Produce     json
//
// @Param       id               path    string  true   "Client ID"         example(141add05-4415-4938-b5a1-17e0d3171aff)
// @Param       range            query   int     false  "Window in days"    Enums(7, 30, 90)
// @Param       Idempotency-Key  header  string  false  "Idempotency key"   example(recompute-2026-02-10)
//
// @Success     200  {object}  handlers.RecomputeResponse
// @Header      200  {string}  Idempotent-Replay  "true when served from a stored response"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Client not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Recompute failed"
// @Router      /clients/{id}/attribution/recompute [post]
func (h *Handlers) RecomputeAttribution(c *gin.Context) {
	ctx := c.Request.Context()
	clientID := c.Param("id")

	var (
		results []services.RecomputeResult
		err     error
	)
	if c.Query("range") == "" {
		results, err = h.attrSvc.RecomputeAll(ctx, clientID)
	} else {
		rangeDays, perr := parseRange(c, 0)
		if perr != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, perr.Error())
			return
		}
		var res services.RecomputeResult
		res, err = h.attrSvc.Recompute(ctx, clientID, rangeDays)
		results = []services.RecomputeResult{res}
	}
	if err != nil {
		writeServiceError(c, err, ErrCodeRecomputeFailed)
		return
	}
	ok(c, http.StatusOK, RecomputeResponse{Ranges: results})
}

// ListAttribution godoc
// @ID          listAttribution
// @Summary     List attribution rollups (paginated)
// @Description Returns the stored rollups of a client for one window range, highest pipeline first. Supports a weak ETag via If-None-Match and may return 304.
// @Tags        Attribution
// @Produce     json
//
// @Param       id             path    string  true   "Client ID"                   example(141add05-4415-4938-b5a1-17e0d3171aff)
// @Param       range          query   int     false  "Window in days"              Enums(7, 30, 90) default(30)
// @Param       page           query   int     false  "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"              minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"attribution:c1:30:1:20:12:1770735600000000000\")
//
// @Success     200  {object}  handlers.ListAttributionResponse
// @Header      200  {string}  ETag  "Weak ETag for the stored rollups"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Client not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /clients/{id}/attribution [get]
func (h *Handlers) ListAttribution(c *gin.Context) {
	ctx := c.Request.Context()
	clientID := c.Param("id")

	rangeDays, err := parseRange(c, defaultListRange)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	page, pageSize := utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)

	// ETag pre-check (best effort). Every recompute rewrites computed_at, so
	// (count, latest computed_at) changes whenever the rows do.
	if count, last, err := h.attrSvc.ResultsStats(ctx, clientID, rangeDays); err == nil {
		var ts int64
		if last != nil {
			ts = last.UnixNano()
		}
		etag := fmt.Sprintf(`W/"attribution:%s:%d:%d:%d:%d:%d"`, clientID, rangeDays, page, pageSize, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			notModified(c)
			return
		}
	}

	items, total, err := h.attrSvc.ListResults(ctx, clientID, rangeDays, page, pageSize)
	if err != nil {
		c.Writer.Header().Del("ETag")
		writeServiceError(c, err, ErrCodeListFailed)
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListAttributionResponse{
		RangeDays: rangeDays,
		Results:   items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
