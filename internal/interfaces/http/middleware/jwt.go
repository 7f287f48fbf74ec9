package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/auth"
	"github.com/orderflow/backend/internal/infrastructure/logger"
	"github.com/orderflow/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// gin context keys set by the JWT middleware
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTTenantIDKey = "jwt_tenant_id"
	JWTRoleKey     = "jwt_role"
	ActorKey       = "actor"
	TenantKey      = "tenant_id"
)

const (
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

var (
	errNoAuthHeader = errors.New("missing authorization header")
	errNotBearer    = errors.New("authorization header is not a bearer token")
)

// authFailures maps token errors to the response code and message; the
// first match wins and anything unmatched is a plain 401
var authFailures = []struct {
	errs    []error
	code    string
	message string
}{
	{[]error{auth.ErrExpiredToken}, dto.ErrCodeTokenExpired, "Token has expired"},
	{[]error{auth.ErrTokenNotYetValid}, dto.ErrCodeUnauthorized, "Token is not yet valid"},
	{[]error{auth.ErrInvalidClaims, auth.ErrMissingTenantID, auth.ErrMissingUserID, auth.ErrMissingRole},
		dto.ErrCodeUnauthorized, "Token claims are incomplete"},
	{[]error{auth.ErrInvalidToken}, dto.ErrCodeUnauthorized, "Invalid token"},
}

type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// SkipPaths are served without a token
	SkipPaths []string
	Logger    *zap.Logger
}

// JWTAuthMiddleware authenticates everything except the health endpoints
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/api/v1/health"},
	})
}

// JWTAuthMiddlewareWithConfig resolves the tenant and the acting user from
// the bearer token and stores them on the gin context and the request
// context. Requests without a valid token are answered with 401.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	skip := slices.Clone(cfg.SkipPaths)

	return func(c *gin.Context) {
		if slices.Contains(skip, c.Request.URL.Path) {
			c.Next()
			return
		}

		claims, tenantID, actor, err := authenticate(cfg.JWTService, c.GetHeader(AuthHeaderKey))
		if err != nil {
			log.Warn("JWT authentication failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			rejectUnauthenticated(c, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTTenantIDKey, claims.TenantID)
		c.Set(JWTRoleKey, string(actor.Role))
		c.Set(TenantKey, tenantID)
		c.Set(ActorKey, actor)

		ctx, _ := logger.WithActor(c.Request.Context(), logger.FromContext(c.Request.Context()), tenantID, actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func authenticate(svc *auth.JWTService, header string) (*auth.Claims, uuid.UUID, shared.Actor, error) {
	token, err := bearerToken(header)
	if err != nil {
		return nil, uuid.Nil, shared.Actor{}, err
	}
	claims, err := svc.Validate(token)
	if err != nil {
		return nil, uuid.Nil, shared.Actor{}, err
	}
	tenantID, err := claims.TenantUUID()
	if err != nil {
		return nil, uuid.Nil, shared.Actor{}, err
	}
	actor, err := claims.Actor()
	if err != nil {
		return nil, uuid.Nil, shared.Actor{}, err
	}
	return claims, tenantID, actor, nil
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoAuthHeader
	}
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok {
		return "", errNotBearer
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", auth.ErrInvalidToken
	}
	return token, nil
}

func rejectUnauthenticated(c *gin.Context, err error) {
	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	for _, f := range authFailures {
		if slices.ContainsFunc(f.errs, func(target error) bool { return errors.Is(err, target) }) {
			code, message = f.code, f.message
			break
		}
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, c.GetString(logger.RequestIDKey)))
}

// GetJWTClaims returns the validated claims, or nil on unauthenticated routes
func GetJWTClaims(c *gin.Context) *auth.Claims {
	claims, _ := c.Value(JWTClaimsKey).(*auth.Claims)
	return claims
}

// GetTenantID returns the authenticated tenant
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := c.Value(TenantKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// GetActor returns the authenticated actor
func GetActor(c *gin.Context) (shared.Actor, bool) {
	actor, ok := c.Value(ActorKey).(shared.Actor)
	return actor, ok
}
