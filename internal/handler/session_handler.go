package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tallyocr/internal/csvexport"
	"tallyocr/internal/domain"
	"tallyocr/internal/export"
	"tallyocr/internal/service"
)

// SessionHandler handles review session endpoints.
type SessionHandler struct {
	sessions service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_SESSION_ID", "session id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	sess, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, sess)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sess)
}

// Clear handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Clear(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.Clear(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"cleared": true})
}

// AddPage handles POST /api/v1/sessions/:id/pages
func (h *SessionHandler) AddPage(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	page, err := h.sessions.AddPage(c.Request.Context(), service.AddPageInput{
		SessionID: id,
		File:      file,
		Header:    header,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, page)
}

// ListPages handles GET /api/v1/sessions/:id/pages
func (h *SessionHandler) ListPages(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	pages, err := h.sessions.ListPages(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, pages)
}

// GetPage handles GET /api/v1/sessions/:id/pages/:pageID
func (h *SessionHandler) GetPage(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	pageID, err := uuid.Parse(c.Param("pageID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_PAGE_ID", "page id must be a UUID")
		return
	}
	page, err := h.sessions.GetPage(c.Request.Context(), id, pageID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, page)
}

type updateTableRequest struct {
	Headers []string   `json:"headers" binding:"required"`
	Rows    [][]string `json:"rows" binding:"required"`
}

// UpdateTable handles PUT /api/v1/sessions/:id/tables/:index
func (h *SessionHandler) UpdateTable(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var index int
	if _, err := fmt.Sscanf(c.Param("index"), "%d", &index); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_TABLE_INDEX", "table index must be an integer")
		return
	}
	var req updateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	table, err := h.sessions.UpdateTable(c.Request.Context(), service.UpdateTableInput{
		SessionID: id,
		Index:     index,
		Headers:   req.Headers,
		Rows:      req.Rows,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, table)
}

// Reconcile handles POST /api/v1/sessions/:id/reconcile
func (h *SessionHandler) Reconcile(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.sessions.ReconcileTables(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sess.Tables)
}

// SelectOrgUnit handles PUT /api/v1/sessions/:id/org-unit
func (h *SessionHandler) SelectOrgUnit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var orgUnit domain.NameID
	if err := c.ShouldBindJSON(&orgUnit); err != nil || orgUnit.ID == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "org unit name and id are required")
		return
	}
	if err := h.sessions.SelectOrgUnit(c.Request.Context(), id, orgUnit); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, orgUnit)
}

// SelectFacility handles PUT /api/v1/sessions/:id/facility
func (h *SessionHandler) SelectFacility(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var facility domain.OrgUnitChild
	if err := c.ShouldBindJSON(&facility); err != nil || facility.ID == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "facility name and id are required")
		return
	}
	if err := h.sessions.SelectFacility(c.Request.Context(), id, facility); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, facility)
}

type selectDataSetRequest struct {
	ID string `json:"id" binding:"required"`
}

// SelectDataSet handles PUT /api/v1/sessions/:id/dataset
func (h *SessionHandler) SelectDataSet(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req selectDataSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "dataset id is required")
		return
	}
	if err := h.sessions.SelectDataSet(c.Request.Context(), id, req.ID); err != nil {
		HandleError(c, err)
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sess.DataSet)
}

type setPeriodStartRequest struct {
	Date string `json:"date" binding:"required"`
}

// SetPeriodStart handles PUT /api/v1/sessions/:id/period-start
func (h *SessionHandler) SetPeriodStart(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req setPeriodStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "date is required")
		return
	}
	start, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
		return
	}
	if err := h.sessions.SetPeriodStart(c.Request.Context(), id, start); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"period_start": req.Date})
}

// GeneratePayload handles POST /api/v1/sessions/:id/payload
func (h *SessionHandler) GeneratePayload(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	payload, err := h.sessions.GenerateEntries(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, payload)
}

type submitRequest struct {
	DryRun *bool `json:"dry_run"`
}

// Submit handles POST /api/v1/sessions/:id/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	// Dry run unless explicitly disabled; a real import is the exception.
	dryRun := true
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.DryRun != nil {
		dryRun = *req.DryRun
	}

	result, err := h.sessions.Submit(c.Request.Context(), id, dryRun)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// Attempts handles GET /api/v1/sessions/:id/attempts
func (h *SessionHandler) Attempts(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	attempts, err := h.sessions.Attempts(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, attempts)
}

// Export handles GET /api/v1/sessions/:id/export
// The default format is an xlsx workbook of the reviewed tables;
// ?format=csv exports the generated payload instead.
func (h *SessionHandler) Export(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		h.exportCSV(c, sess)
		return
	}

	buf, err := export.Workbook(sess.Tables)
	if err != nil {
		RespondError(c, http.StatusConflict, "NOTHING_TO_EXPORT", "no reviewed tables in session")
		return
	}

	filename := fmt.Sprintf("tally-session-%s.xlsx", sess.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// exportCSV writes the generated payload as one CSV row per data value.
func (h *SessionHandler) exportCSV(c *gin.Context, sess *domain.Session) {
	if sess.Payload == nil {
		HandleError(c, domain.ErrPayloadNotGenerated)
		return
	}

	var buf bytes.Buffer
	buf.Write(csvexport.BOM)
	w := csvexport.NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		HandleError(c, err)
		return
	}
	if err := w.WritePayload(sess.Payload); err != nil {
		HandleError(c, err)
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		HandleError(c, err)
		return
	}

	filename := csvexport.BuildFilename("tally-session-" + sess.ID.String())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
