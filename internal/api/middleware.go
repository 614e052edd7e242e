package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/scanhub/internal/auth"
	"github.com/yakoovad/scanhub/internal/model"
	"github.com/yakoovad/scanhub/internal/service"
	"github.com/yakoovad/scanhub/pkg/logger"
	"go.uber.org/zap"
)

const identityContextKey = "identity"

func ZapLoggerMiddleware(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)

			reqLogger := l.With(
				zap.String("request_id", requestID),
			)

			c.Set("logger", reqLogger)

			ctx := logger.WithLogger(req.Context(), reqLogger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			latency := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Duration("latency", latency),
				zap.Int64("bytes_in", req.ContentLength),
				zap.Int64("bytes_out", res.Size),
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				reqLogger.Error("request failed", fields...)
			} else {
				reqLogger.Info("request completed", fields...)
			}

			return err
		}
	}
}

// AuthMiddleware verifies the bearer token and stores the caller's identity
// in the echo context. Browsers cannot set headers on WebSocket upgrades,
// so a token query parameter is accepted as a fallback.
func AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if token == "" {
				token = c.QueryParam("token")
			}
			if token == "" {
				return c.JSON(http.StatusUnauthorized, errorResponse(
					service.NewError(service.ErrorCodeNotAuth, "missing token")))
			}

			claims, err := auth.VerifyToken(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorResponse(
					service.NewError(service.ErrorCodeNotAuth, "invalid or expired token")))
			}

			c.Set(identityContextKey, &model.Identity{
				ID:    claims.UserID,
				Email: claims.Email,
			})

			return next(c)
		}
	}
}

// IdentityFromContext returns the authenticated caller, or nil on public
// routes.
func IdentityFromContext(c echo.Context) *model.Identity {
	if id, ok := c.Get(identityContextKey).(*model.Identity); ok {
		return id
	}
	return nil
}

func errorResponse(err *service.Error) any {
	return struct {
		Error *service.Error `json:"error"`
	}{Error: err}
}
