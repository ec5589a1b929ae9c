package handler

import (
	"net/http"

	"anoa.com/sparkvest/internal/middleware"
	"anoa.com/sparkvest/internal/modules/comment/dto"
	"anoa.com/sparkvest/internal/modules/comment/service"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/response"
	"anoa.com/sparkvest/pkg/validator"
	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	service service.CommentService
}

func NewCommentHandler(service service.CommentService) *CommentHandler {
	return &CommentHandler{service: service}
}

func (h *CommentHandler) List(c *gin.Context) {
	viewer, _ := middleware.CurrentUser(c)

	projectID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	comments, err := h.service.List(c.Request.Context(), viewer, projectID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": comments})
}

func (h *CommentHandler) PostComment(c *gin.Context) {
	author, ok := middleware.CurrentUser(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	projectID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	comment, err := h.service.PostComment(c.Request.Context(), author, projectID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) Reply(c *gin.Context) {
	author, ok := middleware.CurrentUser(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	parentID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	reply, err := h.service.ReplyTo(c.Request.Context(), author, parentID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reply)
}

func (h *CommentHandler) ToggleLike(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	commentID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.ToggleLike(c.Request.Context(), userID, commentID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	commentID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteComment(c.Request.Context(), actor, commentID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
