package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"leafwise-server/internal/config"
	"leafwise-server/internal/domain/analysis"
	"leafwise-server/internal/domain/identify"
	"leafwise-server/internal/interfaces/httpserver/middlewares"
	"leafwise-server/internal/interfaces/httpserver/responses"
)

const (
	maxImagesPerRequest = 3
	imagesFormField     = "images"
	languageFormField   = "language"
)

// AnalysisHandler exposes the analysis pipeline endpoints.
type AnalysisHandler struct {
	cfg     *config.Config
	service *analysis.Service
	log     zerolog.Logger
}

func NewAnalysisHandler(cfg *config.Config, service *analysis.Service, log zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "analysis-handler").Logger(),
	}
}

// Create runs one analysis over the uploaded photos. Image payloads live for
// the duration of the request only.
func (h *AnalysisHandler) Create(c *gin.Context) {
	userID := c.GetHeader(middlewares.UserIDHeader)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, responses.ErrorResponse{
			Code:    "UNAUTHORIZED",
			Message: "missing " + middlewares.UserIDHeader + " header",
		})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		responses.WriteValidationError(c, "request must be multipart/form-data")
		return
	}

	images, err := h.readImages(form.File[imagesFormField])
	if err != nil {
		responses.WriteValidationError(c, err.Error())
		return
	}

	language := c.PostForm(languageFormField)

	result, err := h.service.Analyze(c.Request.Context(), &analysis.Request{
		UserID:   userID,
		Images:   images,
		Language: language,
	})
	if err != nil {
		responses.WriteError(c, h.log, err)
		return
	}

	c.JSON(responses.StatusForResult(result), responses.FromResult(result))
}

// Get returns a stored analysis result.
func (h *AnalysisHandler) Get(c *gin.Context) {
	result, err := h.service.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, analysis.ErrResultNotFound) {
			c.JSON(http.StatusNotFound, responses.ErrorResponse{
				Code:    "NOT_FOUND",
				Message: "analysis result not found",
			})
			return
		}
		responses.WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, responses.FromResult(result))
}

// readImages validates and loads the uploaded files. Size and format are
// enforced here so no oversized or non-photo payload ever reaches a paid
// provider call.
func (h *AnalysisHandler) readImages(files []*multipart.FileHeader) ([]identify.Image, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("at least one image is required in the %q form field", imagesFormField)
	}
	if len(files) > maxImagesPerRequest {
		return nil, fmt.Errorf("at most %d images are allowed per analysis", maxImagesPerRequest)
	}

	images := make([]identify.Image, 0, len(files))
	for _, fh := range files {
		if fh.Size > h.cfg.MaxImageBytes {
			return nil, fmt.Errorf("image %q exceeds the %d byte limit", fh.Filename, h.cfg.MaxImageBytes)
		}

		file, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot read image %q", fh.Filename)
		}
		data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxImageBytes+1))
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read image %q", fh.Filename)
		}
		if int64(len(data)) > h.cfg.MaxImageBytes {
			return nil, fmt.Errorf("image %q exceeds the %d byte limit", fh.Filename, h.cfg.MaxImageBytes)
		}

		// Sniff the real content type; the client-declared header is not
		// trusted.
		mtype := mimetype.Detect(data)
		if !mtype.Is("image/jpeg") && !mtype.Is("image/png") {
			return nil, fmt.Errorf("image %q must be JPEG or PNG, got %s", fh.Filename, mtype.String())
		}

		images = append(images, identify.Image{Data: data, MimeType: mtype.String()})
	}
	return images, nil
}
