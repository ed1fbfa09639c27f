package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/snowlabel/internal/backend/auth"
	"github.com/jo-hoe/snowlabel/internal/backend/blobstore"
	"github.com/jo-hoe/snowlabel/internal/backend/database"
	"github.com/jo-hoe/snowlabel/internal/core"
)

// APIService serves the two machine-facing surfaces: device uploads
// authenticated by a shared API key, and the operator labeling endpoints
// authenticated by a session.
type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
}

type labelRequest struct {
	Label string `json:"label" validate:"required,oneof=snowy not_snowy"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Probe route for deployment health checks
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	e.POST("/api/upload", s.uploadHandler)

	operator := auth.RequireOperatorAPI(s.coreService.Sessions(), s.config.Session.Secret)
	e.GET("/api/next-image", s.nextImageHandler, operator)
	e.POST("/api/label-image/:id", s.labelImageHandler, operator)
}

// uploadHandler receives an image upload from an IoT device.
func (s *APIService) uploadHandler(ctx echo.Context) error {
	apiKey := ctx.Request().Header.Get(auth.APIKeyHeader)
	if !auth.ValidDeviceKey(apiKey, s.config.DeviceAPIKey) {
		slog.Warn("uploadHandler: rejected device upload",
			"status", http.StatusUnauthorized, "remote", ctx.RealIP())
		return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		slog.Warn("uploadHandler: missing file part",
			"status", http.StatusBadRequest, "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "No file part in request"})
	}
	if file.Filename == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "No selected file"})
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("uploadHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to open uploaded file"})
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(src)
	if err != nil {
		slog.Error("uploadHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to read uploaded file"})
	}

	deviceID := ctx.FormValue("device_id")
	record, err := s.coreService.StoreUpload(file.Filename, deviceID, data)
	if errors.Is(err, blobstore.ErrEmptyFilename) {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "No selected file"})
	}
	if err != nil {
		slog.Error("uploadHandler: failed to store upload",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to store upload"})
	}

	return ctx.JSON(http.StatusCreated, map[string]string{
		"message":  "File uploaded successfully",
		"filename": record.Filename,
	})
}

// nextImageHandler returns the next unlabeled image for the dashboard.
func (s *APIService) nextImageHandler(ctx echo.Context) error {
	record, err := s.coreService.NextUnlabeled()
	if errors.Is(err, database.ErrNotFound) {
		return ctx.JSON(http.StatusOK, map[string]any{
			"status":  "complete",
			"message": "No more images to label!",
		})
	}
	if err != nil {
		slog.Error("nextImageHandler: failed to fetch next image",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"status": "error", "message": "Failed to fetch next image",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":    "success",
		"image_id":  record.ID,
		"image_url": "/uploads/" + record.Filename,
	})
}

// labelImageHandler saves the label decision for an image.
func (s *APIService) labelImageHandler(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"status": "error", "message": "Image not found",
		})
	}

	var request labelRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"status": "error", "message": "Invalid label",
		})
	}
	if err := ctx.Validate(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"status": "error", "message": "Invalid label",
		})
	}

	err = s.coreService.LabelImage(id, request.Label)
	switch {
	case errors.Is(err, core.ErrInvalidLabel):
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"status": "error", "message": "Invalid label",
		})
	case errors.Is(err, database.ErrNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"status": "error", "message": "Image not found",
		})
	case err != nil:
		slog.Error("labelImageHandler: failed to save label",
			"status", http.StatusInternalServerError, "error", err, "image_id", id)
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"status": "error", "message": "Failed to save label",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Image %d labeled as %s", id, request.Label),
	})
}
