// Package delivery exposes the analysis pipeline over HTTP.
package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/field-guardian/field-guardian-api/internal/analysis"
	"github.com/field-guardian/field-guardian-api/internal/export"
	"github.com/field-guardian/field-guardian-api/internal/faults"
	"github.com/field-guardian/field-guardian-api/internal/geometry"
	"github.com/field-guardian/field-guardian-api/internal/notification"
	"github.com/field-guardian/field-guardian-api/internal/storage"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

const dateLayout = "2006-01-02"

// Handler wires the analysis service, persistence and field geometry
// lookup into the HTTP routes.
type Handler struct {
	service *analysis.Service
	store   storage.Store
	fields  geometry.FieldSource
}

func NewHandler(service *analysis.Service, store storage.Store, fields geometry.FieldSource) *Handler {
	return &Handler{service: service, store: store, fields: fields}
}

// Router builds the gin engine with all analysis routes registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/vi/timeseries/:fieldID", h.getTimeSeries)
	r.GET("/vi/snapshots/:fieldID", h.getSnapshots)

	va := r.Group("/vi-analysis")
	{
		va.POST("/:fieldID/analyze", h.analyze)
		va.POST("/:fieldID/analyze-historical", h.analyzeHistorical)
		va.POST("/overlay", h.adhocOverlay)
		va.GET("/latest/:fieldID", h.getLatest)
		va.POST("/bulk-analyze/:fieldID", h.bulkAnalyze)
		va.GET("/timeseries/:fieldID/export", h.exportTimeSeries)
		va.DELETE("/snapshots/:fieldID", h.deleteSnapshots)
	}

	return r
}

// abortWithFault translates a pipeline error into the HTTP response the
// error taxonomy prescribes.
func abortWithFault(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, faults.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, faults.ErrDataUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, faults.ErrUnsupportedVIType):
		status = http.StatusBadRequest
	case errors.Is(err, faults.ErrInvalidImage):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"error_code": faults.Code(err),
		"message":    faults.Message(err),
	})
}

func (h *Handler) fieldGeometry(c *gin.Context) (uuid.UUID, orb.Geometry, bool) {
	fieldID, err := uuid.Parse(c.Param("fieldID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "field ID must be a UUID"})
		return uuid.Nil, nil, false
	}
	geom, err := h.fields.FieldGeometry(fieldID)
	if err != nil {
		abortWithFault(c, err)
		return uuid.Nil, nil, false
	}
	return fieldID, geom, true
}

func parseVIType(c *gin.Context, raw string) (vi.Type, bool) {
	t, err := vi.ParseType(raw)
	if err != nil {
		abortWithFault(c, err)
		return "", false
	}
	return t, true
}

func (h *Handler) getTimeSeries(c *gin.Context) {
	fieldID, geom, ok := h.fieldGeometry(c)
	if !ok {
		return
	}
	t, ok := parseVIType(c, c.DefaultQuery("vi_type", string(vi.NDVI)))
	if !ok {
		return
	}

	analysisType := c.DefaultQuery("analysis_type", analysis.AnalysisMonthlyRange)
	start, err := time.Parse(dateLayout, c.Query("start_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dateLayout, c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "end_date must be YYYY-MM-DD"})
		return
	}

	result, err := h.service.TimeSeries(c.Request.Context(), fieldID, geom, t, start, end, analysisType)
	if err != nil {
		if errors.Is(err, faults.ErrDataUnavailable) {
			c.JSON(http.StatusOK, gin.H{
				"timeseries": []analysis.SeriesPoint{},
				"source":     "remote",
				"count":      0,
				"message":    faults.Message(err),
			})
			return
		}
		abortWithFault(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"timeseries": result.Points,
		"source":     result.Source,
		"count":      result.Count,
		"message":    result.Message,
	})
}

func (h *Handler) getSnapshots(c *gin.Context) {
	fieldID, err := uuid.Parse(c.Param("fieldID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "field ID must be a UUID"})
		return
	}

	viType := c.Query("vi_type")
	if viType != "" {
		if _, ok := parseVIType(c, viType); !ok {
			return
		}
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "limit must be a positive integer"})
		return
	}

	snaps, err := h.store.ListSnapshots(c.Request.Context(), fieldID, viType, limit)
	if err != nil {
		abortWithFault(c, err)
		return
	}
	if snaps == nil {
		snaps = []storage.Snapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps, "count": len(snaps)})
}

type analyzeRequest struct {
	VIType string `json:"vi_type"`
	Date   string `json:"date"`
}

func (h *Handler) analyze(c *gin.Context) {
	fieldID, geom, ok := h.fieldGeometry(c)
	if !ok {
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "invalid request body"})
		return
	}
	t, ok := parseVIType(c, req.VIType)
	if !ok {
		return
	}
	date := time.Now()
	if req.Date != "" {
		var err error
		if date, err = time.Parse(dateLayout, req.Date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "date must be YYYY-MM-DD"})
			return
		}
	}

	snap, err := h.service.Analyze(c.Request.Context(), fieldID, geom, t, date)
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type historicalRequest struct {
	VIType   string `json:"vi_type"`
	Limit    int    `json:"limit"`
	ClearOld bool   `json:"clear_old"`
}

func (h *Handler) analyzeHistorical(c *gin.Context) {
	fieldID, geom, ok := h.fieldGeometry(c)
	if !ok {
		return
	}

	var req historicalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "invalid request body"})
		return
	}
	t, ok := parseVIType(c, req.VIType)
	if !ok {
		return
	}
	if req.Limit < 1 {
		req.Limit = 10
	}

	created, err := h.service.AnalyzeHistorical(c.Request.Context(), fieldID, geom, t, req.Limit, req.ClearOld)
	if err != nil {
		if nerr := notification.SendDiscordErrorNotification(fmt.Sprintf("Historical %s analysis failed for field %s: %v", t, fieldID, err)); nerr != nil {
			fmt.Printf("Failed to send Discord notification: %v\n", nerr)
		}
		abortWithFault(c, err)
		return
	}

	if nerr := notification.SendDiscordSuccessNotification(fmt.Sprintf("Historical %s analysis created %d snapshots for field %s", t, len(created), fieldID)); nerr != nil {
		fmt.Printf("Failed to send Discord notification: %v\n", nerr)
	}
	if created == nil {
		created = []storage.Snapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": created, "count": len(created)})
}

type overlayRequest struct {
	Geometry map[string]interface{} `json:"geometry"`
	VIType   string                 `json:"vi_type"`
	Date     string                 `json:"date"`
}

func (h *Handler) adhocOverlay(c *gin.Context) {
	var req overlayRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Geometry == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "invalid request body"})
		return
	}
	t, ok := parseVIType(c, req.VIType)
	if !ok {
		return
	}
	date := time.Now()
	if req.Date != "" {
		var err error
		if date, err = time.Parse(dateLayout, req.Date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "date must be YYYY-MM-DD"})
			return
		}
	}

	raw, err := json.Marshal(req.Geometry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "invalid geometry"})
		return
	}
	geom, err := geometry.Decode(raw)
	if err != nil {
		abortWithFault(c, err)
		return
	}

	stats, err := h.service.Statistics(c.Request.Context(), geom, t, date)
	if err != nil {
		abortWithFault(c, err)
		return
	}
	// Statistics are the primary result; overlay failure degrades to an
	// empty reference, same as snapshot analysis.
	overlayRef, err := h.service.Overlay(c.Request.Context(), geom, t, date)
	if err != nil {
		fmt.Printf("Overlay generation failed for ad-hoc geometry: %v\n", err)
		overlayRef = ""
	}

	c.JSON(http.StatusOK, gin.H{
		"overlay_data":     overlayRef,
		"mean_value":       stats.MeanValue,
		"min_value":        stats.MinValue,
		"max_value":        stats.MaxValue,
		"analysis_message": stats.AnalysisMessage,
		"measurement_date": stats.MeasurementDate.Format(dateLayout),
	})
}

func (h *Handler) getLatest(c *gin.Context) {
	fieldID, err := uuid.Parse(c.Param("fieldID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "field ID must be a UUID"})
		return
	}

	latest, err := h.service.Latest(c.Request.Context(), fieldID)
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, latest)
}

type bulkRequest struct {
	VITypes []string `json:"vi_types"`
	Date    string   `json:"date"`
}

func (h *Handler) bulkAnalyze(c *gin.Context) {
	fieldID, geom, ok := h.fieldGeometry(c)
	if !ok {
		return
	}

	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "invalid request body"})
		return
	}

	types := vi.AllTypes
	if len(req.VITypes) > 0 {
		types = make([]vi.Type, 0, len(req.VITypes))
		for _, raw := range req.VITypes {
			t, ok := parseVIType(c, raw)
			if !ok {
				return
			}
			types = append(types, t)
		}
	}
	date := time.Now()
	if req.Date != "" {
		var err error
		if date, err = time.Parse(dateLayout, req.Date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "date must be YYYY-MM-DD"})
			return
		}
	}

	results := h.service.BulkAnalyze(c.Request.Context(), fieldID, geom, types, date)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) exportTimeSeries(c *gin.Context) {
	fieldID, err := uuid.Parse(c.Param("fieldID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "field ID must be a UUID"})
		return
	}
	t, ok := parseVIType(c, c.DefaultQuery("vi_type", string(vi.NDVI)))
	if !ok {
		return
	}

	start := time.Time{}
	end := time.Now()
	if raw := c.Query("start_date"); raw != "" {
		if start, err = time.Parse(dateLayout, raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "start_date must be YYYY-MM-DD"})
			return
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if end, err = time.Parse(dateLayout, raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "end_date must be YYYY-MM-DD"})
			return
		}
	}

	points, err := h.store.ListPoints(c.Request.Context(), fieldID, string(t), start, end)
	if err != nil {
		abortWithFault(c, err)
		return
	}

	filename := fmt.Sprintf("timeseries_%s_%s.csv", t, fieldID)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "text/csv")
	if err := export.WriteTimeSeriesCSV(c.Writer, points); err != nil {
		fmt.Printf("Failed to stream CSV export: %v\n", err)
	}
}

func (h *Handler) deleteSnapshots(c *gin.Context) {
	fieldID, err := uuid.Parse(c.Param("fieldID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_code": "INVALID_REQUEST", "message": "field ID must be a UUID"})
		return
	}
	viType := c.Query("vi_type")
	if viType != "" {
		if _, ok := parseVIType(c, viType); !ok {
			return
		}
	}

	deleted, err := h.store.DeleteSnapshots(c.Request.Context(), fieldID, viType)
	if err != nil {
		abortWithFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
