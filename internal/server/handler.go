package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vk_syncer/internal/domain"
	"vk_syncer/internal/service"
	"vk_syncer/internal/source/vk"
)

// IntegrationService is the slice of the import service the admin API
// needs.
type IntegrationService interface {
	Integration(ctx context.Context) (*service.IntegrationInfo, error)
	CreateIntegration(ctx context.Context, integration *domain.Integration) (*service.IntegrationInfo, error)
	UpdateIntegration(ctx context.Context, patch service.IntegrationPatch) (*service.IntegrationInfo, error)
	SetMode(ctx context.Context, mode domain.Mode) (*service.IntegrationInfo, error)
	TestConnection(ctx context.Context) (*domain.TestResult, error)
	FetchNow(ctx context.Context) (*domain.ImportStats, error)
	ListImported(ctx context.Context, limit int) ([]domain.ImportedPost, error)
	ClearImported(ctx context.Context) (int, int, error)
	DeleteIntegration(ctx context.Context) error
}

// Handler serves the admin management API. Authorization is the
// surrounding layer's concern and arrives as middleware.
type Handler struct {
	svc    IntegrationService
	logger *slog.Logger
}

func NewHandler(svc IntegrationService, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With("component", "server")}
}

// Register mounts the routes under /api/vk-integration behind the given
// authorization middleware.
func (h *Handler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	g := r.Group("/api/vk-integration", auth)
	g.GET("", h.getIntegration)
	g.POST("", h.createIntegration)
	g.PUT("", h.updateIntegration)
	g.DELETE("", h.deleteIntegration)
	g.PATCH("/mode/:mode", h.setMode)
	g.POST("/test", h.testConnection)
	g.POST("/fetch-now", h.fetchNow)
	g.GET("/imported", h.listImported)
	g.DELETE("/imported", h.clearImported)
}

func (h *Handler) getIntegration(c *gin.Context) {
	info, err := h.svc.Integration(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	if info == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, toIntegrationResponse(info))
}

func (h *Handler) createIntegration(c *gin.Context) {
	var req createIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := h.svc.CreateIntegration(c.Request.Context(), req.toDomain())
	if err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toIntegrationResponse(info))
}

func (h *Handler) updateIntegration(c *gin.Context) {
	var req updateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := h.svc.UpdateIntegration(c.Request.Context(), req.toPatch())
	if err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, toIntegrationResponse(info))
}

func (h *Handler) deleteIntegration(c *gin.Context) {
	if err := h.svc.DeleteIntegration(c.Request.Context()); err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "vk integration deleted"})
}

func (h *Handler) setMode(c *gin.Context) {
	info, err := h.svc.SetMode(c.Request.Context(), domain.Mode(c.Param("mode")))
	if err != nil {
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, toIntegrationResponse(info))
}

func (h *Handler) testConnection(c *gin.Context) {
	result, err := h.svc.TestConnection(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, testResultResponse{
		Success:    result.Success,
		GroupName:  result.GroupName,
		PostsCount: result.PostsCount,
		Error:      result.Error,
	})
}

func (h *Handler) fetchNow(c *gin.Context) {
	stats, err := h.svc.FetchNow(c.Request.Context())
	if err != nil {
		var apiErr *vk.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "VK API: " + apiErr.Message})
			return
		}
		h.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, fetchNowResponse{
		Imported:     stats.Imported,
		TotalChecked: stats.Checked,
	})
}

func (h *Handler) listImported(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := h.svc.ListImported(c.Request.Context(), limit)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, toImportedPostResponses(entries))
}

func (h *Handler) clearImported(c *gin.Context) {
	deletedNews, deletedEntries, err := h.svc.ClearImported(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, clearImportedResponse{
		DeletedNews:    deletedNews,
		DeletedRecords: deletedEntries,
	})
}

func (h *Handler) mapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrIntegrationOff), errors.Is(err, service.ErrInvalidMode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.serverError(c, err)
	}
}

func (h *Handler) serverError(c *gin.Context, err error) {
	h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
