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

type DevisHandler struct {
	devisService      service.DevisService
	conversionService service.ConversionService
}

func NewDevisHandler(devisService service.DevisService, conversionService service.ConversionService) *DevisHandler {
	return &DevisHandler{
		devisService:      devisService,
		conversionService: conversionService,
	}
}

func (h *DevisHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleCommercial)

	devis := router.Group("/api/devis")
	{
		devis.POST("", staff, h.CreateDevis)
		devis.GET("", staff, h.ListDevis)
		devis.GET("/:id", staff, h.GetDevis)
		devis.PUT("/:id", staff, h.UpdateDevis)
		devis.DELETE("/:id", staff, h.DeleteDevis)

		devis.POST("/:id/lignes", staff, h.AddLigne)
		devis.PUT("/:id/lignes/:ligneId", staff, h.UpdateLigne)
		devis.DELETE("/:id/lignes/:ligneId", staff, h.RemoveLigne)

		devis.PUT("/:id/send", staff, h.SendDevis)
		devis.PUT("/:id/accept", staff, h.AcceptDevis)
		devis.PUT("/:id/refuse", staff, h.RefuseDevis)
		devis.POST("/:id/duplicate", staff, h.DuplicateDevis)
		devis.POST("/:id/convert", staff, h.ConvertDevis)
	}

	// Administrative sweep, normally driven by the scheduler; exposed for
	// operational use.
	adminGroup := router.Group("/api/admin")
	{
		adminGroup.PUT("/devis/expire-stale", middleware.RequireRole(model.RoleAdmin), h.ExpireStale)
	}
}

// ExpireStale sweeps sent devis past their validity date to expire
// @Summary      Expire stale devis
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/admin/devis/expire-stale [put]
func (h *DevisHandler) ExpireStale(c *gin.Context) {
	expired, err := h.devisService.ExpireStale(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"expired": expired}))
}

// CreateDevis creates a new draft devis with its lignes
// @Summary      Create devis
// @Description  Creates a new brouillon devis for a chantier, allocating its numero
// @Tags         devis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateDevisRequest  true  "Create Devis Payload"
// @Success      201      {object}  response.Response{data=service.DevisDetail}
// @Failure      400      {object}  response.Response
// @Router       /api/devis [post]
func (h *DevisHandler) CreateDevis(c *gin.Context) {
	var req service.CreateDevisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	devis, err := h.devisService.Create(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, devis))
}

// ListDevis returns a paginated list of devis
// @Summary      List devis
// @Description  Retrieves a paginated list of devis, optionally filtered by statut and chantier
// @Tags         devis
// @Security     BearerAuth
// @Produce      json
// @Param        statut       query     string  false  "Filter by statut (brouillon, envoye, accepte, refuse, expire)"
// @Param        chantier_id  query     string  false  "Filter by chantier"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      500          {object}  response.Response
// @Router       /api/devis [get]
func (h *DevisHandler) ListDevis(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.DevisFilter{
		Status:     c.Query("statut"),
		ChantierID: c.Query("chantier_id"),
		Page:       params.Page,
		Limit:      params.Limit,
	}

	devis, total, err := h.devisService.List(c.Request.Context(), filter)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "devis", devis, total, params.Page, params.Limit))
}

// GetDevis returns one devis with its lignes
// @Summary      Get devis
// @Tags         devis
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Devis ID"
// @Success      200  {object}  response.Response{data=service.DevisDetail}
// @Failure      404  {object}  response.Response
// @Router       /api/devis/{id} [get]
func (h *DevisHandler) GetDevis(c *gin.Context) {
	devis, err := h.devisService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, devis))
}

// UpdateDevis edits a brouillon devis (internal notes stay editable once sent)
// @Summary      Update devis
// @Tags         devis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Devis ID"
// @Param        payload  body      service.UpdateDevisRequest  true  "Update Devis Payload"
// @Success      200      {object}  response.Response{data=service.DevisResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/devis/{id} [put]
func (h *DevisHandler) UpdateDevis(c *gin.Context) {
	var req service.UpdateDevisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	devis, err := h.devisService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, devis))
}

// DeleteDevis deletes a brouillon devis and its lignes
// @Summary      Delete devis
// @Tags         devis
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Devis ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/devis/{id} [delete]
func (h *DevisHandler) DeleteDevis(c *gin.Context) {
	if err := h.devisService.Delete(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// AddLigne appends a ligne to a brouillon devis
// @Summary      Add ligne to devis
// @Tags         devis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Devis ID"
// @Param        payload  body      service.LigneRequest  true  "Ligne Payload"
// @Success      200      {object}  response.Response{data=service.DevisDetail}
// @Failure      409      {object}  response.Response
// @Router       /api/devis/{id}/lignes [post]
func (h *DevisHandler) AddLigne(c *gin.Context) {
	var req service.LigneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	devis, err := h.devisService.AddLigne(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, devis))
}

// UpdateLigne replaces one ligne of a brouillon devis
// @Summary      Update ligne of devis
// @Tags         devis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Devis ID"
// @Param        ligneId  path      string                true  "Ligne ID"
// @Param        payload  body      service.LigneRequest  true  "Ligne Payload"
// @Success      200      {object}  response.Response{data=service.DevisDetail}
// @Failure      409      {object}  response.Response
// @Router       /api/devis/{id}/lignes/{ligneId} [put]
func (h *DevisHandler) UpdateLigne(c *gin.Context) {
	var req service.LigneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	devis, err := h.devisService.UpdateLigne(c.Request.Context(), c.Param("id"), c.Param("ligneId"), req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, devis))
}

// RemoveLigne removes one ligne from a brouillon devis
// @Summary      Remove ligne from devis
// @Tags         devis
// @Security     BearerAuth
// @Produce      json
// @Param        id       path      string  true  "Devis ID"
// @Param        ligneId  path      string  true  "Ligne ID"
// @Success      200      {object}  response.Response{data=service.DevisDetail}
// @Failure      409      {object}  response.Response
// @Router       /api/devis/{id}/lignes/{ligneId} [delete]
func (h *DevisHandler) RemoveLigne(c *gin.Context) {
	devis, err := h.devisService.RemoveLigne(c.Request.Context(), c.Param("id"), c.Param("ligneId"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, devis))
}

// SendDevis marks a brouillon devis as sent to the client
// @Summary      Send devis
// @Tags         devis
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Devis ID"
// @Success      200  {object}  response.Response{data=service.DevisResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/devis/{id}/send [put]
func (h *DevisHandler) SendDevis(c *gin.Context) {
	devis, err := h.devisService.Send(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, devis))
}

// AcceptDevis records the client's acceptance, optionally with a signature
// @Summary      Accept devis
// @Tags         devis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true   "Devis ID"
// @Param        payload  body      service.AcceptDevisRequest  false  "Signature Payload"
// @Success      200      {object}  response.Response{data=service.DevisResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/devis/{id}/accept [put]
func (h *DevisHandler) AcceptDevis(c *gin.Context) {
	var req service.AcceptDevisRequest
	_ = c.ShouldBindJSON(&req)
	if req.SignatureClient != "" && req.SignatureIP == "" {
		req.SignatureIP = c.ClientIP()
	}

	devis, err := h.devisService.Accept(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, devis))
}

// RefuseDevis records the client's refusal
// @Summary      Refuse devis
// @Tags         devis
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Devis ID"
// @Success      200  {object}  response.Response{data=service.DevisResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/devis/{id}/refuse [put]
func (h *DevisHandler) RefuseDevis(c *gin.Context) {
	devis, err := h.devisService.Refuse(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, devis))
}

// DuplicateDevis clones a devis into a new unrelated brouillon
// @Summary      Duplicate devis
// @Tags         devis
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Devis ID"
// @Success      201  {object}  response.Response{data=service.DevisDetail}
// @Failure      404  {object}  response.Response
// @Router       /api/devis/{id}/duplicate [post]
func (h *DevisHandler) DuplicateDevis(c *gin.Context) {
	devis, err := h.devisService.Duplicate(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, devis))
}

// ConvertDevis converts an accepted devis into a brouillon facture
// @Summary      Convert devis to facture
// @Tags         devis
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Devis ID"
// @Success      201  {object}  response.Response{data=service.FactureDetail}
// @Failure      409  {object}  response.Response
// @Router       /api/devis/{id}/convert [post]
func (h *DevisHandler) ConvertDevis(c *gin.Context) {
	facture, err := h.conversionService.Convert(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, facture))
}
