package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tallyocr/internal/service"
)

// MetadataHandler handles metadata lookup endpoints for the selection flow.
type MetadataHandler struct {
	metadata service.MetadataService
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(metadata service.MetadataService) *MetadataHandler {
	return &MetadataHandler{metadata: metadata}
}

// SearchOrgUnits handles GET /api/v1/metadata/org-units?q=...
func (h *MetadataHandler) SearchOrgUnits(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_QUERY", "q parameter is required")
		return
	}
	units, err := h.metadata.SearchOrgUnits(c.Request.Context(), query)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, units)
}

// OrgUnitChildren handles GET /api/v1/metadata/org-units/:id/children
func (h *MetadataHandler) OrgUnitChildren(c *gin.Context) {
	children, err := h.metadata.OrgUnitChildren(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, children)
}

// DataSets handles GET /api/v1/metadata/datasets?ids=a,b,c
func (h *MetadataHandler) DataSets(c *gin.Context) {
	raw := c.Query("ids")
	if raw == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_IDS", "ids parameter is required")
		return
	}
	sets, err := h.metadata.DataSets(c.Request.Context(), strings.Split(raw, ","))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sets)
}

// FormCatalog handles GET /api/v1/metadata/datasets/:id/catalog
func (h *MetadataHandler) FormCatalog(c *gin.Context) {
	catalog, err := h.metadata.FormCatalog(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, catalog)
}
