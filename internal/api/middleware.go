package api

import (
	"net/http"
	"strings"
	"time"

	"donneur-go/internal/apperrors"
	"donneur-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	callerKey  = "caller"
	subjectKey = "subject"
)

const errMissingToken = errors.ConstError("missing bearer token")

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return "", apperrors.New(apperrors.Unauthorized, errMissingToken, "")
	}
	return strings.TrimSpace(token), nil
}

// requireCaller resolves the bearer token to a linked account.
func (s *Server) requireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		caller, err := s.deps.Auth.Verify(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(callerKey, caller)
		c.Request = c.Request.WithContext(models.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// requireSubject only checks the token; the uid need not be linked yet.
func (s *Server) requireSubject() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		subject, err := s.deps.Auth.Subject(token)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(subjectKey, subject)
		c.Next()
	}
}

func requireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := set.NewStrings()
	for _, role := range roles {
		allowed.Add(string(role))
	}
	return func(c *gin.Context) {
		if !allowed.Contains(string(callerOf(c).Role)) {
			abortWithError(c, apperrors.New(apperrors.Unauthorized, apperrors.Unauthorized, "role not allowed"))
			return
		}
		c.Next()
	}
}

func callerOf(c *gin.Context) models.Caller {
	caller, _ := models.CallerFrom(c.Request.Context())
	return caller
}

// statusFor maps a failure kind to an HTTP status.
func statusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.InsufficientFunds:
		return http.StatusConflict
	case apperrors.Unauthorized:
		return http.StatusForbidden
	case apperrors.AlreadyExists:
		return http.StatusConflict
	case apperrors.InvalidInput:
		return http.StatusBadRequest
	case apperrors.DependencyFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorBody(err error) gin.H {
	kind := apperrors.KindOf(err)
	if kind == "" {
		return gin.H{"error": "internal error"}
	}
	return gin.H{"error": err.Error(), "kind": string(kind)}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, errorBody(err))
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), errorBody(err))
}

func badRequest(c *gin.Context, err error) {
	writeError(c, apperrors.New(apperrors.InvalidInput, apperrors.InvalidInput, "%v", err))
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zap.L().Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func cors(allowedOrigins []string) gin.HandlerFunc {
	origins := set.NewStrings(allowedOrigins...)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (origins.Contains("*") || origins.Contains(origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
