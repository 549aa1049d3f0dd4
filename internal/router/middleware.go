package router

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/AgustinReiden/distribuidora-app-sub004/internal/cache"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/config"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/constants"
	handlershared "github.com/AgustinReiden/distribuidora-app-sub004/internal/http/handlers/shared"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/http/response"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/logger"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/metrics"
	"github.com/AgustinReiden/distribuidora-app-sub004/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"

const actorStateTTL = 5 * time.Minute

// ActorClaims bearer token claims of a staff actor
type ActorClaims struct {
	ActorID uint   `json:"actor_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// actorState cached view of the user behind a token
type actorState struct {
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// CORSMiddleware cross origin middleware
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Authorization",
			"Cache-Control",
			"X-Request-ID",
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware assigns or propagates X-Request-ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware structured access log
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if actorID, ok := c.Get(handlershared.ActorIDKey); ok {
			log = log.With("actor_id", actorID)
		}
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

// MetricsMiddleware records latency and count per route template
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// ActorAuthMiddleware resolves the acting staff user from a bearer token.
// The stored user is authoritative: inactive users are rejected and the stored role wins over the claim.
func ActorAuthMiddleware(cfg config.ActorTokenConfig, userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Secret == "" {
			response.Unauthorized(c, "token secret not configured")
			c.Abort()
			return
		}
		if userRepo == nil {
			response.Unauthorized(c, "token invalid")
			c.Abort()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authorization header missing")
			c.Abort()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			response.Unauthorized(c, "authorization header invalid")
			c.Abort()
			return
		}

		claims, err := ParseActorToken(cfg, parts[1])
		if err != nil {
			logger.Debugw("actor_token_rejected", "request_id", getRequestID(c), "error", err)
			response.Unauthorized(c, "token invalid")
			c.Abort()
			return
		}

		state, err := loadActorState(c, userRepo, claims.ActorID)
		if err != nil {
			logger.Errorw("actor_state_load_failed", "actor_id", claims.ActorID, "error", err)
			response.Error(c, response.CodeInternal, "internal error")
			c.Abort()
			return
		}
		if state == nil || !state.Active {
			response.Unauthorized(c, "actor disabled")
			c.Abort()
			return
		}

		c.Set(handlershared.ActorIDKey, claims.ActorID)
		c.Set(handlershared.ActorRoleKey, state.Role)
		c.Next()
	}
}

func loadActorState(c *gin.Context, userRepo repository.UserRepository, actorID uint) (*actorState, error) {
	key := "actor:" + strconv.FormatUint(uint64(actorID), 10)
	var cached actorState
	if hit, err := cache.GetJSON(c.Request.Context(), key, &cached); err == nil && hit {
		return &cached, nil
	}
	user, err := userRepo.GetByID(actorID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	state := &actorState{Role: user.Role, Active: user.Active}
	if err := cache.SetJSON(c.Request.Context(), key, state, actorStateTTL); err != nil {
		logger.Debugw("actor_state_cache_set_failed", "actor_id", actorID, "error", err)
	}
	return state, nil
}

// ParseActorToken validates an HS256 actor token
func ParseActorToken(cfg config.ActorTokenConfig, tokenString string) (*ActorClaims, error) {
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(options...)
	claims := &ActorClaims{}
	token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ActorID == 0 {
		return nil, errors.New("actor token invalid")
	}
	if !constants.ValidRole(claims.Role) {
		return nil, errors.New("actor role invalid")
	}
	return claims, nil
}

// IssueActorToken signs an actor token valid for ttl
func IssueActorToken(cfg config.ActorTokenConfig, actorID uint, role string, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("token secret not configured")
	}
	now := time.Now()
	claims := ActorClaims{
		ActorID: actorID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   strconv.FormatUint(uint64(actorID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}
