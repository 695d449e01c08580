package handler

import (
	"net/http"

	"billing-backend/internal/middleware"
	"billing-backend/internal/model"
	"billing-backend/internal/service"
	"billing-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaiementHandler struct {
	paiementService service.PaiementService
}

func NewPaiementHandler(paiementService service.PaiementService) *PaiementHandler {
	return &PaiementHandler{paiementService: paiementService}
}

func (h *PaiementHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleCommercial)
	admin := middleware.RequireRole(model.RoleAdmin)

	factures := router.Group("/api/factures")
	{
		factures.POST("/:id/paiements", staff, h.RecordPaiement)
		factures.GET("/:id/paiements", staff, h.ListPaiements)
	}

	paiements := router.Group("/api/paiements")
	{
		paiements.PUT("/:id/validate", admin, h.ValidatePaiement)
		paiements.PUT("/:id/reject", admin, h.RejectPaiement)
		paiements.DELETE("/:id", admin, h.DeletePaiement)
	}
}

// RecordPaiement records a paiement against a facture
// @Summary      Record paiement
// @Description  Records a ledger entry against a facture; negative amounts are corrective entries
// @Tags         paiements
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Facture ID"
// @Param        payload  body      service.RecordPaiementRequest  true  "Record Paiement Payload"
// @Success      201      {object}  response.Response{data=service.PaiementResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/factures/{id}/paiements [post]
func (h *PaiementHandler) RecordPaiement(c *gin.Context) {
	var req service.RecordPaiementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	paiement, err := h.paiementService.Record(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, paiement))
}

// ListPaiements returns the ledger of a facture
// @Summary      List paiements of facture
// @Tags         paiements
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Facture ID"
// @Success      200  {object}  response.Response{data=[]service.PaiementResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/factures/{id}/paiements [get]
func (h *PaiementHandler) ListPaiements(c *gin.Context) {
	paiements, err := h.paiementService.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, paiements))
}

// ValidatePaiement validates an en_attente paiement, updating the facture ledger
// @Summary      Validate paiement
// @Tags         paiements
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Paiement ID"
// @Success      200  {object}  response.Response{data=service.PaiementResponse}
// @Failure      422  {object}  response.Response
// @Router       /api/paiements/{id}/validate [put]
func (h *PaiementHandler) ValidatePaiement(c *gin.Context) {
	paiement, err := h.paiementService.Validate(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, paiement))
}

type rejectPaiementRequest struct {
	Commentaire string `json:"commentaire"`
}

// RejectPaiement rejects an en_attente paiement
// @Summary      Reject paiement
// @Tags         paiements
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true   "Paiement ID"
// @Param        payload  body      rejectPaiementRequest  false  "Rejection comment"
// @Success      200      {object}  response.Response{data=service.PaiementResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/paiements/{id}/reject [put]
func (h *PaiementHandler) RejectPaiement(c *gin.Context) {
	var req rejectPaiementRequest
	_ = c.ShouldBindJSON(&req)

	paiement, err := h.paiementService.Reject(c.Request.Context(), c.Param("id"), currentUserID(c), req.Commentaire)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, paiement))
}

// DeletePaiement deletes an en_attente or rejete paiement
// @Summary      Delete paiement
// @Description  Deletes a non-validated paiement; a valide entry is settled with a corrective entry instead
// @Tags         paiements
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Paiement ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/paiements/{id} [delete]
func (h *PaiementHandler) DeletePaiement(c *gin.Context) {
	if err := h.paiementService.Delete(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
