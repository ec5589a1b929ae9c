package handler

import (
	"net/http"

	"anoa.com/sparkvest/internal/entity"
	"anoa.com/sparkvest/internal/middleware"
	"anoa.com/sparkvest/internal/modules/admin/dto"
	adminService "anoa.com/sparkvest/internal/modules/admin/service"
	userDto "anoa.com/sparkvest/internal/modules/user/dto"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/response"
	"anoa.com/sparkvest/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	adminService adminService.AdminService
}

func NewAdminHandler(adminService adminService.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	res, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) ListProjects(c *gin.Context) {
	var filter dto.ProjectFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.adminService.ListProjects(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// adminAndID reads the acting admin and the :id path parameter.
func adminAndID(c *gin.Context) (*entity.User, uuid.UUID, bool) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return nil, uuid.Nil, false
	}

	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return nil, uuid.Nil, false
	}
	return admin, id, true
}

func (h *AdminHandler) ProjectDetail(c *gin.Context) {
	admin, id, ok := adminAndID(c)
	if !ok {
		return
	}

	res, err := h.adminService.ProjectDetail(c.Request.Context(), admin, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) Approve(c *gin.Context) {
	admin, id, ok := adminAndID(c)
	if !ok {
		return
	}

	res, err := h.adminService.Approve(c.Request.Context(), admin, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) Reject(c *gin.Context) {
	admin, id, ok := adminAndID(c)
	if !ok {
		return
	}

	res, err := h.adminService.Reject(c.Request.Context(), admin, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) Feedback(c *gin.Context) {
	admin, id, ok := adminAndID(c)
	if !ok {
		return
	}

	var input dto.FeedbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.adminService.Feedback(c.Request.Context(), admin, id, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	var filter userDto.UserFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.adminService.ListUsers(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.EditUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.adminService.EditUser(c.Request.Context(), id, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "user": res})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	admin, id, ok := adminAndID(c)
	if !ok {
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), admin, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user deleted successfully"})
}
