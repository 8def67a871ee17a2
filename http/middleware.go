package http

import (
	"net/http"
	"strings"

	"passagens/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"
)

const correlationIDHeader = "Correlation-ID"

// correlationID propagates the caller's Correlation-ID header into the request
// context, minting one when the caller sent none.
func correlationID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		correlationID := c.Request().Header.Get(correlationIDHeader)
		if correlationID == "" {
			correlationID = "gen_" + shortuuid.New()
		}

		ctx := logging.ContextWithCorrelationID(c.Request().Context(), correlationID)
		ctx = logging.ToContext(ctx, logrus.WithField("correlation_id", correlationID))
		c.SetRequest(c.Request().WithContext(ctx))

		c.Response().Header().Set(correlationIDHeader, correlationID)

		return next(c)
	}
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)

		logger := logging.FromContext(c.Request().Context()).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
			"status": c.Response().Status,
		})
		if err != nil {
			logger.WithError(err).Warn("Request failed")
		} else {
			logger.Info("Request handled")
		}

		return err
	}
}

// operatorAuth guards operator endpoints with a bearer token. An empty secret
// disables authentication, which is the norm for kiosk deployments on a
// closed network.
func operatorAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
			}

			return next(c)
		}
	}
}
