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

type ChantierHandler struct {
	chantierService service.ChantierService
}

func NewChantierHandler(chantierService service.ChantierService) *ChantierHandler {
	return &ChantierHandler{chantierService: chantierService}
}

func (h *ChantierHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleCommercial)

	chantiers := router.Group("/api/chantiers")
	{
		chantiers.POST("", staff, h.CreateChantier)
		chantiers.GET("", staff, h.ListChantiers)
		chantiers.GET("/:id", staff, h.GetChantier)
		chantiers.PUT("/:id", staff, h.UpdateChantier)
		chantiers.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteChantier)
	}
}

// CreateChantier creates a chantier carrying the client identity
// @Summary      Create chantier
// @Tags         chantiers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateChantierRequest  true  "Create Chantier Payload"
// @Success      201      {object}  response.Response{data=service.ChantierResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/chantiers [post]
func (h *ChantierHandler) CreateChantier(c *gin.Context) {
	var req service.CreateChantierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	chantier, err := h.chantierService.Create(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, chantier))
}

// ListChantiers returns a paginated list of chantiers
// @Summary      List chantiers
// @Tags         chantiers
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/chantiers [get]
func (h *ChantierHandler) ListChantiers(c *gin.Context) {
	params := pagination.Parse(c)

	chantiers, total, err := h.chantierService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		abortWith(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "chantiers", chantiers, total, params.Page, params.Limit))
}

// GetChantier returns one chantier
// @Summary      Get chantier
// @Tags         chantiers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Chantier ID"
// @Success      200  {object}  response.Response{data=service.ChantierResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/chantiers/{id} [get]
func (h *ChantierHandler) GetChantier(c *gin.Context) {
	chantier, err := h.chantierService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, chantier))
}

// UpdateChantier edits a chantier; existing documents keep their client snapshot
// @Summary      Update chantier
// @Tags         chantiers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Chantier ID"
// @Param        payload  body      service.UpdateChantierRequest  true  "Update Chantier Payload"
// @Success      200      {object}  response.Response{data=service.ChantierResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/chantiers/{id} [put]
func (h *ChantierHandler) UpdateChantier(c *gin.Context) {
	var req service.UpdateChantierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	chantier, err := h.chantierService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, chantier))
}

// DeleteChantier removes a chantier
// @Summary      Delete chantier
// @Tags         chantiers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Chantier ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/chantiers/{id} [delete]
func (h *ChantierHandler) DeleteChantier(c *gin.Context) {
	if err := h.chantierService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
