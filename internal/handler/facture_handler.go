package handler

import (
	"net/http"

	"billing-backend/internal/middleware"
	"billing-backend/internal/model"
	"billing-backend/internal/service"
	"billing-backend/pkg/pagination"
	"billing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type FactureHandler struct {
	factureService service.FactureService
}

func NewFactureHandler(factureService service.FactureService) *FactureHandler {
	return &FactureHandler{factureService: factureService}
}

func (h *FactureHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleCommercial)
	admin := middleware.RequireRole(model.RoleAdmin)

	factures := router.Group("/api/factures")
	{
		factures.POST("", staff, h.CreateFacture)
		factures.GET("", staff, h.ListFactures)
		factures.GET("/statistics", staff, h.GetStatistics)
		factures.GET("/:id", staff, h.GetFacture)
		factures.PUT("/:id", staff, h.UpdateFacture)

		factures.POST("/:id/lignes", staff, h.AddLigne)
		factures.PUT("/:id/lignes/:ligneId", staff, h.UpdateLigne)
		factures.DELETE("/:id/lignes/:ligneId", staff, h.RemoveLigne)

		factures.PUT("/:id/send", staff, h.SendFacture)
		factures.PUT("/:id/cancel", staff, h.CancelFacture)
		factures.PUT("/:id/echeance", staff, h.UpdateDueDate)
		factures.GET("/:id/penalites", staff, h.GetPenalties)
		factures.POST("/:id/relance", staff, h.RecordRelance)
	}

	// Administrative sweep, normally driven by the scheduler; exposed for
	// operational use.
	adminGroup := router.Group("/api/admin")
	{
		adminGroup.PUT("/factures/refresh-overdue", admin, h.RefreshOverdue)
	}
}

// CreateFacture creates a direct facture (without a devis) with its lignes
// @Summary      Create facture
// @Description  Creates a new brouillon facture for a chantier, allocating its numero
// @Tags         factures
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateFactureRequest  true  "Create Facture Payload"
// @Success      201      {object}  response.Response{data=service.FactureDetail}
// @Failure      400      {object}  response.Response
// @Router       /api/factures [post]
func (h *FactureHandler) CreateFacture(c *gin.Context) {
	var req service.CreateFactureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	facture, err := h.factureService.Create(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, facture))
}

// ListFactures returns a paginated list of factures
// @Summary      List factures
// @Tags         factures
// @Security     BearerAuth
// @Produce      json
// @Param        statut       query     string  false  "Filter by statut (brouillon, envoyee, payee_partiel, payee, en_retard, annulee)"
// @Param        chantier_id  query     string  false  "Filter by chantier"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/factures [get]
func (h *FactureHandler) ListFactures(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.FactureFilter{
		Status:     c.Query("statut"),
		ChantierID: c.Query("chantier_id"),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	factures, total, err := h.factureService.List(c.Request.Context(), filter)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "factures", factures, total, params.Page, params.Limit))
}

// GetFacture returns one facture with its lignes
// @Summary      Get facture
// @Tags         factures
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Facture ID"
// @Success      200  {object}  response.Response{data=service.FactureDetail}
// @Failure      404  {object}  response.Response
// @Router       /api/factures/{id} [get]
func (h *FactureHandler) GetFacture(c *gin.Context) {
	facture, err := h.factureService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, facture))
}

// UpdateFacture edits a brouillon facture (bookkeeping fields stay editable once sent)
// @Summary      Update facture
// @Tags         factures
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Facture ID"
// @Param        payload  body      service.UpdateFactureRequest  true  "Update Facture Payload"
// @Success      200      {object}  response.Response{data=service.FactureResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/factures/{id} [put]
func (h *FactureHandler) UpdateFacture(c *gin.Context) {
	var req service.UpdateFactureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	facture, err := h.factureService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, facture))
}

// AddLigne appends a ligne to a brouillon facture
// @Summary      Add ligne to facture
// @Tags         factures
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Facture ID"
// @Param        payload  body      service.LigneRequest  true  "Ligne Payload"
// @Success      200      {object}  response.Response{data=service.FactureDetail}
// @Failure      409      {object}  response.Response
// @Router       /api/factures/{id}/lignes [post]
func (h *FactureHandler) AddLigne(c *gin.Context) {
	var req service.LigneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	facture, err := h.factureService.AddLigne(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, facture))
}

// UpdateLigne replaces one ligne of a brouillon facture
// @Summary      Update ligne of facture
// @Tags         factures
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Facture ID"
// @Param        ligneId  path      string                true  "Ligne ID"
// @Param        payload  body      service.LigneRequest  true  "Ligne Payload"
// @Success      200      {object}  response.Response{data=service.FactureDetail}
// @Failure      409      {object}  response.Response
// @Router       /api/factures/{id}/lignes/{ligneId} [put]
func (h *FactureHandler) UpdateLigne(c *gin.Context) {
	var req service.LigneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	facture, err := h.factureService.UpdateLigne(c.Request.Context(), c.Param("id"), c.Param("ligneId"), req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, facture))
}

// RemoveLigne removes one ligne from a brouillon facture
// @Summary      Remove ligne from facture
// @Tags         factures
// @Security     BearerAuth
// @Produce      json
// @Param        id       path      string  true  "Facture ID"
// @Param        ligneId  path      string  true  "Ligne ID"
// @Success      200      {object}  response.Response{data=service.FactureDetail}
// @Failure      409      {object}  response.Response
// @Router       /api/factures/{id}/lignes/{ligneId} [delete]
func (h *FactureHandler) RemoveLigne(c *gin.Context) {
	facture, err := h.factureService.RemoveLigne(c.Request.Context(), c.Param("id"), c.Param("ligneId"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, facture))
}

// SendFacture marks a brouillon facture as sent to the client
// @Summary      Send facture
// @Tags         factures
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Facture ID"
// @Success      200  {object}  response.Response{data=service.FactureResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/factures/{id}/send [put]
func (h *FactureHandler) SendFacture(c *gin.Context) {
	facture, err := h.factureService.Send(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, facture))
}

// CancelFacture cancels a facture that has no validated paiements
// @Summary      Cancel facture
// @Tags         factures
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Facture ID"
// @Success      200  {object}  response.Response{data=service.FactureResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/factures/{id}/cancel [put]
func (h *FactureHandler) CancelFacture(c *gin.Context) {
	facture, err := h.factureService.Cancel(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, facture))
}

type updateDueDateRequest struct {
	DateEcheance string `json:"date_echeance" binding:"required"`
}

// UpdateDueDate moves the due date, re-deriving the overdue status
// @Summary      Update facture due date
// @Tags         factures
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Facture ID"
// @Param        payload  body      updateDueDateRequest  true  "New due date (YYYY-MM-DD)"
// @Success      200      {object}  response.Response{data=service.FactureResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/factures/{id}/echeance [put]
func (h *FactureHandler) UpdateDueDate(c *gin.Context) {
	var req updateDueDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	facture, err := h.factureService.UpdateDueDate(c.Request.Context(), c.Param("id"), req.DateEcheance)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, facture))
}

// GetPenalties computes the late-payment penalties owed on a facture
// @Summary      Get facture penalties
// @Description  Computes the statutory late-payment penalty, fixed indemnity and reminder level as of today
// @Tags         factures
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Facture ID"
// @Success      200  {object}  response.Response{data=service.PenaltyResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/factures/{id}/penalites [get]
func (h *FactureHandler) GetPenalties(c *gin.Context) {
	penalties, err := h.factureService.Penalties(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, penalties))
}

// RecordRelance records that a payment reminder was sent for an overdue facture
// @Summary      Record relance
// @Tags         factures
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Facture ID"
// @Success      200  {object}  response.Response{data=service.FactureResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/factures/{id}/relance [post]
func (h *FactureHandler) RecordRelance(c *gin.Context) {
	facture, err := h.factureService.RecordRelance(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, facture))
}

// GetStatistics aggregates the facture book by statut and overdue age
// @Summary      Facture statistics
// @Tags         factures
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.FactureStatistics}
// @Failure      500  {object}  response.Response
// @Router       /api/factures/statistics [get]
func (h *FactureHandler) GetStatistics(c *gin.Context) {
	stats, err := h.factureService.Statistics(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// RefreshOverdue sweeps unpaid factures past due to en_retard
// @Summary      Refresh overdue factures
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/admin/factures/refresh-overdue [put]
func (h *FactureHandler) RefreshOverdue(c *gin.Context) {
	updated, err := h.factureService.RefreshOverdue(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"updated": updated}))
}
