package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"realms-server/internal/models"
)

// JWTVerifier validates user tokens issued by the auth collaborator.
type JWTVerifier struct {
	jwtSecret string
	logger    *zap.Logger
}

func NewJWTVerifier(jwtSecret string, logger *zap.Logger) (*JWTVerifier, error) {
	if jwtSecret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JWTVerifier{
		jwtSecret: jwtSecret,
		logger:    logger.Named("JWTVerifier"),
	}, nil
}

// VerifyToken checks the signature and validity and returns the user ID
// carried in the subject claim.
func (v *JWTVerifier) VerifyToken(ctx context.Context, tokenString string) (uuid.UUID, error) {
	log := v.logger.With(zap.String("tokenSnippet", tokenSnippet(tokenString)))
	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			log.Warn("Unexpected signing method", zap.Any("alg", token.Header["alg"]))
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.jwtSecret), nil
	})

	if err != nil {
		log.Warn("Failed to parse or verify token", zap.Error(err))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, models.ErrTokenExpired
		} else if errors.Is(err, jwt.ErrTokenMalformed) {
			return uuid.Nil, models.ErrTokenMalformed
		} else if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return uuid.Nil, models.ErrTokenInvalid
		}
		return uuid.Nil, fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)
	}

	if !token.Valid {
		log.Warn("Token is invalid despite no parsing error")
		return uuid.Nil, models.ErrTokenInvalid
	}

	userID, err := claims.UserID()
	if err != nil {
		log.Warn("Token subject is not a user UUID", zap.String("subject", claims.Subject))
		return uuid.Nil, err
	}

	return userID, nil
}

// AuthMiddleware authenticates requests from the Authorization header
// and stores the user UUID in the gin context.
func AuthMiddleware(verifier *JWTVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractBearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		userID, err := verifier.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			status := http.StatusUnauthorized
			message := "invalid token"
			if errors.Is(err, models.ErrTokenExpired) {
				message = "token expired"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": message})
			return
		}

		c.Set(string(models.UserContextKey), userID)
		c.Next()
	}
}

// UserIDFromContext pulls the authenticated user out of the gin
// context.
func UserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	value, exists := c.Get(string(models.UserContextKey))
	if !exists {
		return uuid.Nil, models.ErrUnauthorized
	}
	userID, ok := value.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, models.ErrUnauthorized
	}
	return userID, nil
}

func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		// The websocket handshake cannot set headers from a browser, so
		// a token query parameter is accepted as a fallback.
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", models.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", models.ErrTokenMalformed
	}
	return parts[1], nil
}

// tokenSnippet returns a log-safe fragment of the token.
func tokenSnippet(tokenString string) string {
	limit := 15
	if len(tokenString) > limit {
		return tokenString[:limit] + "..."
	}
	return tokenString
}
