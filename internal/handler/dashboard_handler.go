package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escola-dev/escola-api/internal/service"
	appErrors "github.com/escola-dev/escola-api/pkg/errors"
	"github.com/escola-dev/escola-api/pkg/response"
)

// DashboardHandler exposes the landing page and boletim endpoints.
type DashboardHandler struct {
	dashboard *service.DashboardService
	export    *service.ExportService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(dashboard *service.DashboardService, export *service.ExportService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, export: export}
}

// Resumo returns the professor landing-page payload.
func (h *DashboardHandler) Resumo(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resumo, err := h.dashboard.Resumo(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resumo, nil)
}

// Boletim returns the turma grade report.
func (h *DashboardHandler) Boletim(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	boletim, err := h.dashboard.Boletim(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, boletim, nil)
}

// BoletimExport streams the boletim as a CSV or PDF download.
func (h *DashboardHandler) BoletimExport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format, err := service.ParseExportFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.export.BoletimFile(c.Request.Context(), claims.UserID, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
