package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"keeway/models"
	"keeway/pkg/service"
)

const (
	appContextKey  = "app"
	userContextKey = "exchangeUser"

	// StatusInvalidToken and StatusVerificationPending extend the standard
	// set for clients that branch on auth state.
	StatusInvalidToken        = 498
	StatusVerificationPending = 499
)

func abort(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"status":    false,
		"message":   message,
		"timestamp": time.Now().Unix(),
	})
}

// AppAuth resolves the x-api-key header to a tenant and stores it in the
// request context. Unknown keys are 401, suspended apps 403.
func AppAuth(apps service.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		app, err := apps.AuthenticateApp(c.GetHeader("x-api-key"))
		if errors.Is(err, service.ErrInvalidAPIKey) {
			abort(c, http.StatusUnauthorized, "invalid api key")
			return
		}
		if errors.Is(err, service.ErrAppInactive) {
			abort(c, http.StatusForbidden, "app is suspended")
			return
		}
		if err != nil {
			abort(c, http.StatusInternalServerError, "authentication failed")
			return
		}
		c.Set(appContextKey, app)
		c.Next()
	}
}

// UserAuth validates the Bearer token against the app already resolved by
// AppAuth and stores the end user in the request context.
func UserAuth(exchange service.Exchange) gin.HandlerFunc {
	return func(c *gin.Context) {
		app, ok := AppFromContext(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "missing app context")
			return
		}

		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := exchange.ParseToken(app, token)
		if errors.Is(err, service.ErrInvalidToken) {
			abort(c, StatusInvalidToken, "invalid or expired token")
			return
		}
		if errors.Is(err, service.ErrUserBanned) {
			abort(c, http.StatusForbidden, "account is suspended")
			return
		}
		if err != nil {
			abort(c, http.StatusInternalServerError, "authentication failed")
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// AdminAuth gates tenant management. With an empty configured key the check
// is disabled.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey != "" && c.GetHeader("x-admin-key") != adminKey {
			abort(c, http.StatusUnauthorized, "invalid admin key")
			return
		}
		c.Next()
	}
}

func AppFromContext(c *gin.Context) (models.App, bool) {
	value, ok := c.Get(appContextKey)
	if !ok {
		return models.App{}, false
	}
	app, ok := value.(models.App)
	return app, ok
}

func UserFromContext(c *gin.Context) (models.ExchangeUser, bool) {
	value, ok := c.Get(userContextKey)
	if !ok {
		return models.ExchangeUser{}, false
	}
	user, ok := value.(models.ExchangeUser)
	return user, ok
}
