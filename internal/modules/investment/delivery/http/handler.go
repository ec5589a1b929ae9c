package handler

import (
	"net/http"

	"anoa.com/sparkvest/internal/middleware"
	"anoa.com/sparkvest/internal/modules/investment/dto"
	"anoa.com/sparkvest/internal/modules/investment/service"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/response"
	"anoa.com/sparkvest/pkg/validator"
	"github.com/gin-gonic/gin"
)

type InvestmentHandler struct {
	service service.InvestmentService
}

func NewInvestmentHandler(service service.InvestmentService) *InvestmentHandler {
	return &InvestmentHandler{service: service}
}

func (h *InvestmentHandler) Initiate(c *gin.Context) {
	investor, ok := middleware.CurrentUser(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	projectID, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.InitiateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.Initiate(c.Request.Context(), investor, projectID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *InvestmentHandler) Confirm(c *gin.Context) {
	investor, ok := middleware.CurrentUser(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	var input dto.ConfirmInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment response. Please try again."})
		return
	}

	res, err := h.service.Confirm(c.Request.Context(), investor, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *InvestmentHandler) MyInvestments(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.MyInvestments(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}
