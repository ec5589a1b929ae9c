package handler

import (
	"mime/multipart"
	"net/http"

	"anoa.com/sparkvest/internal/middleware"
	"anoa.com/sparkvest/internal/modules/project/dto"
	"anoa.com/sparkvest/internal/modules/project/service"
	"anoa.com/sparkvest/pkg/apperror"
	commonDto "anoa.com/sparkvest/pkg/dto"
	"anoa.com/sparkvest/pkg/realtime"
	"anoa.com/sparkvest/pkg/response"
	"anoa.com/sparkvest/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxUploadMemory = 32 << 20

type ProjectHandler struct {
	service service.ProjectService
	broker  realtime.Broker
}

func NewProjectHandler(service service.ProjectService, broker realtime.Broker) *ProjectHandler {
	return &ProjectHandler{service: service, broker: broker}
}

func (h *ProjectHandler) Submit(c *gin.Context) {
	owner, ok := middleware.CurrentUser(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	var input dto.SubmitProjectInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	var files dto.SubmitFiles
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	open := func(fh *multipart.FileHeader) (*commonDto.UploadFile, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		opened = append(opened, f)
		return &commonDto.UploadFile{Reader: f, FileName: fh.Filename}, nil
	}

	form := c.Request.MultipartForm
	if fhs := form.File["research_report"]; len(fhs) > 0 {
		report, err := open(fhs[0])
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read research report"})
			return
		}
		files.ResearchReport = report
	}
	if fhs := form.File["image"]; len(fhs) > 0 {
		image, err := open(fhs[0])
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
			return
		}
		files.Image = image
	}
	for _, fh := range form.File["additional_images"] {
		image, err := open(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
			return
		}
		files.AdditionalImages = append(files.AdditionalImages, *image)
	}

	res, err := h.service.Submit(c.Request.Context(), owner, input, files)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Your project has been submitted for review.",
		"data":    res,
	})
}

func (h *ProjectHandler) Browse(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var filter dto.ProjectFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.Browse(c.Request.Context(), userID, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProjectHandler) Explore(c *gin.Context) {
	var filter dto.ProjectFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.Explore(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	featured, err := h.service.Featured(c.Request.Context(), uuid.Nil, "newest", 0)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     res.Data,
		"meta":     res.Meta,
		"featured": featured,
	})
}

func (h *ProjectHandler) Search(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.SearchProjectsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.Search(c.Request.Context(), userID, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProjectHandler) Detail(c *gin.Context) {
	viewer, _ := middleware.CurrentUser(c)

	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Detail(c.Request.Context(), viewer, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Live streams funding updates for a project the caller can see.
func (h *ProjectHandler) Live(c *gin.Context) {
	viewer, _ := middleware.CurrentUser(c)

	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if _, err := h.service.Detail(c.Request.Context(), viewer, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	realtime.Relay(c, h.broker, realtime.ProjectChannel(id))
}
