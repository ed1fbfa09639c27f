package frontend

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/snowlabel/internal/backend/auth"
	"github.com/jo-hoe/snowlabel/internal/backend/database"
	"github.com/jo-hoe/snowlabel/internal/backend/imaging"
	"github.com/jo-hoe/snowlabel/internal/core"
)

const mimePNG = "image/png"

// FrontendService serves the operator dashboard: login, labeling page and the
// stored image files themselves.
type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type dashboardData struct {
	UnlabeledCount int
	FirstImage     *database.ImageRecord
}

type loginData struct {
	Error string
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	// Create template renderer
	e.Renderer = &Template{
		templates: template.Must(template.New("").ParseFS(assetsFS, viewsPattern)),
	}

	e.GET("/login", service.loginFormHandler)
	e.POST("/login", service.loginHandler)
	e.GET("/logout", service.logoutHandler)

	guard := auth.RequireOperatorPage(service.coreService.Sessions(), service.config.Session.Secret)
	e.GET("/", service.dashboardHandler, guard)
	e.GET("/dashboard", service.dashboardHandler, guard)
	e.GET("/uploads/:filename", service.uploadedImageHandler, guard)
	e.GET("/uploads/thumb/:id", service.thumbnailHandler, guard)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) isAuthenticated(ctx echo.Context) bool {
	token, err := auth.SessionToken(ctx, service.config.Session.Secret)
	if err != nil {
		return false
	}
	_, err = service.coreService.Sessions().Resolve(ctx.Request().Context(), token)
	return err == nil
}

func (service *FrontendService) loginFormHandler(ctx echo.Context) error {
	if service.isAuthenticated(ctx) {
		return ctx.Redirect(http.StatusFound, "/dashboard")
	}
	return ctx.Render(http.StatusOK, "login.html", loginData{})
}

func (service *FrontendService) loginHandler(ctx echo.Context) error {
	username := ctx.FormValue("username")
	password := ctx.FormValue("password")

	token, err := service.coreService.Login(ctx.Request().Context(), username, password)
	if errors.Is(err, core.ErrInvalidCredentials) {
		slog.Warn("loginHandler: rejected login", "username", username)
		// One generic message for unknown user and wrong password alike
		return ctx.Render(http.StatusUnauthorized, "login.html",
			loginData{Error: "Invalid username or password"})
	}
	if err != nil {
		slog.Error("loginHandler: login failed", "error", err)
		return ctx.Render(http.StatusInternalServerError, "login.html",
			loginData{Error: "Login is temporarily unavailable"})
	}

	auth.SetSessionCookie(ctx, token, service.config.Session.Secret, service.config.Session.TTL)
	return ctx.Redirect(http.StatusFound, "/dashboard")
}

func (service *FrontendService) logoutHandler(ctx echo.Context) error {
	if token, err := auth.SessionToken(ctx, service.config.Session.Secret); err == nil {
		if err := service.coreService.Logout(ctx.Request().Context(), token); err != nil {
			slog.Error("logoutHandler: failed to delete session", "error", err)
		}
	}
	auth.ClearSessionCookie(ctx)
	return ctx.Redirect(http.StatusFound, "/login")
}

func (service *FrontendService) dashboardHandler(ctx echo.Context) error {
	count, err := service.coreService.UnlabeledCount()
	if err != nil {
		slog.Error("dashboardHandler: failed to count unlabeled images",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load dashboard")
	}

	data := dashboardData{UnlabeledCount: count}
	first, err := service.coreService.NextUnlabeled()
	if err == nil {
		data.FirstImage = first
	} else if !errors.Is(err, database.ErrNotFound) {
		slog.Error("dashboardHandler: failed to fetch first unlabeled image",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load dashboard")
	}

	return ctx.Render(http.StatusOK, "dashboard.html", data)
}

// uploadedImageHandler securely serves an image from the blob store.
func (service *FrontendService) uploadedImageHandler(ctx echo.Context) error {
	filename := ctx.Param("filename")
	data, err := service.coreService.ImageBytes(filename)
	if err != nil {
		slog.Warn("uploadedImageHandler: image not available",
			"status", http.StatusNotFound, "filename", filename, "error", err)
		return ctx.String(http.StatusNotFound, "Image not available")
	}

	contentType := http.DetectContentType(data)
	return ctx.Blob(http.StatusOK, contentType, data)
}

// thumbnailHandler serves a scaled preview of an image for the dashboard.
func (service *FrontendService) thumbnailHandler(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.String(http.StatusNotFound, "Image not available")
	}

	record, err := service.coreService.ImageByID(id)
	if err != nil {
		slog.Warn("thumbnailHandler: image not available",
			"status", http.StatusNotFound, "image_id", id, "error", err)
		return ctx.String(http.StatusNotFound, "Image not available")
	}

	data, err := service.coreService.ImageBytes(record.Filename)
	if err != nil {
		slog.Warn("thumbnailHandler: blob not available",
			"status", http.StatusNotFound, "image_id", id, "error", err)
		return ctx.String(http.StatusNotFound, "Image not available")
	}

	thumbnail, err := imaging.Thumbnail(data, service.config.ThumbnailWidth)
	if err != nil {
		slog.Error("thumbnailHandler: failed to generate thumbnail",
			"status", http.StatusInternalServerError, "image_id", id, "error", err)
		return ctx.String(http.StatusInternalServerError, "Thumbnail not available")
	}

	service.setNoCache(ctx)
	return ctx.Blob(http.StatusOK, mimePNG, thumbnail)
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}
