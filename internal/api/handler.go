package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/yakoovad/scanhub/internal/model"
	"github.com/yakoovad/scanhub/internal/realtime"
	"github.com/yakoovad/scanhub/internal/repository"
	"github.com/yakoovad/scanhub/internal/service"
	"github.com/yakoovad/scanhub/pkg/logger"
	"go.uber.org/zap"
)

type Handler struct {
	team *service.TeamService
	scan *service.ScanService
	user *service.UserService

	scans repository.ScanRepository
	hub   *realtime.Hub

	healthChecker HealthChecker

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithTeamService(team *service.TeamService) *Handler {
	h.team = team
	return h
}

func (h *Handler) WithScanService(scan *service.ScanService) *Handler {
	h.scan = scan
	return h
}

func (h *Handler) WithUserService(user *service.UserService) *Handler {
	h.user = user
	return h
}

func (h *Handler) WithScanRepo(r repository.ScanRepository) *Handler {
	h.scans = r
	return h
}

func (h *Handler) WithHub(hub *realtime.Hub) *Handler {
	h.hub = hub
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", h.healthChecker.HealthCheck())

	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)

	secured := e.Group("", AuthMiddleware())

	secured.GET("/teams", h.GetTeamCounts)
	secured.POST("/teams/assign", h.AssignTeam)
	secured.POST("/scans", h.RecordScan)
	secured.GET("/scans/feed", h.GetFeed)
	secured.GET("/scans/stream", h.StreamFeed)
}

func (h *Handler) Register(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
		Username string `json:"username" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("registering user", zap.String("email", req.Email))

	session, err := h.user.Register(e.Request().Context(), req.Email, req.Password, req.Username)
	if err != nil {
		l.Error("failed to register user", zap.String("email", req.Email), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, session)
}

func (h *Handler) Login(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("user logging in", zap.String("email", req.Email))

	session, err := h.user.Login(e.Request().Context(), req.Email, req.Password)
	if err != nil {
		l.Error("failed to log in", zap.String("email", req.Email), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, session)
}

func (h *Handler) GetTeamCounts(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	counts, err := h.team.TeamCounts(e.Request().Context())
	if err != nil {
		l.Error("failed to get team counts", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, counts)
}

func (h *Handler) AssignTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Team int `json:"team" validate:"required,min=1,max=10"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	identity := IdentityFromContext(e)

	l.Info("assigning team", zap.Int("team", req.Team))

	if err := h.team.Assign(e.Request().Context(), identity, req.Team); err != nil {
		l.Error("failed to assign team", zap.Int("team", req.Team), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, &model.Membership{
		OwnerID: identity.ID,
		Team:    req.Team,
	})
}

func (h *Handler) RecordScan(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Code string `json:"code" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("recording scan", zap.String("code", req.Code))

	scan, err := h.scan.Record(e.Request().Context(), IdentityFromContext(e), req.Code)
	if err != nil {
		l.Error("failed to record scan", zap.String("code", req.Code), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, scan)
}

func (h *Handler) GetFeed(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	scope := feedScope(e)

	scans, err := h.scan.List(e.Request().Context(), scope, IdentityFromContext(e))
	if err != nil {
		l.Error("failed to load feed", zap.String("scope", string(scope)), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, scans)
}

func feedScope(e echo.Context) model.FeedScope {
	if s := e.QueryParam("scope"); s != "" {
		return model.FeedScope(s)
	}
	return model.FeedScopeGlobal
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}

	if err := e.Validate(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := errorResponse(err)

	switch err.Code {
	case service.ErrorCodeNotFound:
		return e.JSON(http.StatusNotFound, response)
	case service.ErrorCodeValidation, service.ErrorCodeInvalidBody:
		return e.JSON(http.StatusBadRequest, response)
	case service.ErrorCodeNotAuth:
		return e.JSON(http.StatusUnauthorized, response)
	case service.ErrorCodeTeamFull, service.ErrorCodeAlreadyAssigned:
		return e.JSON(http.StatusConflict, response)
	case service.ErrorCodeStorage, service.ErrorCodeSubscription:
		return e.JSON(http.StatusServiceUnavailable, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}
