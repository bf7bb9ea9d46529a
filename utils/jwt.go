package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Kazutech1/cucker-sub000/config"
	"github.com/Kazutech1/cucker-sub000/database"
	"github.com/Kazutech1/cucker-sub000/logger"
	"github.com/Kazutech1/cucker-sub000/models"

	"github.com/golang-jwt/jwt/v5"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	adminTokenTTL = 6 * time.Hour
	userTokenTTL  = 24 * time.Hour

	blacklistPrefix = "jwt:blacklist:"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// RedisClient is the optional revocation store. When nil, revocations go to
// the revoked_tokens table.
var RedisClient *redis.Client

var (
	jwtMu  sync.RWMutex
	jwtCfg config.AuthConfig
)

// ConfigureJWT sets the signing secret, issuer and audience.
func ConfigureJWT(cfg config.AuthConfig) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	jwtCfg = cfg
}

func authConfig() config.AuthConfig {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	return jwtCfg
}

// InitRedis connects the revocation store. A failed ping leaves RedisClient
// nil and is not fatal.
func InitRedis(ctx context.Context, cfg config.RedisConfig) {
	addr := strings.ReplaceAll(strings.TrimSpace(cfg.Addr), " ", "")
	if addr == "" {
		return
	}
	rc := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		logger.L.Warn("redis ping failed, using database revocation store", zap.String("addr", addr), zap.Error(err))
		_ = rc.Close()
		return
	}
	RedisClient = rc
}

type contextKey string

const (
	UserIDKey    = contextKey("userID")
	UserRoleKey  = contextKey("userRole")
	TokenIDKey   = contextKey("tokenID")
	TokenExpKey  = contextKey("tokenExp")
	RequestIDKey = contextKey("requestID")
)

// GenerateJWT issues an access token for a user or an admin.
func GenerateJWT(id uint, username, role string) (string, error) {
	cfg := authConfig()
	if cfg.JWTSecret == "" {
		return "", errors.New("JWT secret is not configured")
	}

	ttl := userTokenTTL
	if role == RoleAdmin {
		ttl = adminTokenTTL
	}
	jti, err := generateJTI(16)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"id":       id,
		"username": username,
		"role":     role,
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      jti,
	}
	if cfg.JWTIssuer != "" {
		claims["iss"] = cfg.JWTIssuer
	}
	if cfg.JWTAudience != "" {
		claims["aud"] = cfg.JWTAudience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// Identity is the subject of a validated access token.
type Identity struct {
	ID        uint
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// ValidateAccessToken checks signature, registered claims and revocation.
func ValidateAccessToken(ctx context.Context, tokenStr string) (*Identity, error) {
	cfg := authConfig()
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, jwt.ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	id, err := uintClaim(claims["id"])
	if err != nil {
		return nil, ErrInvalidToken
	}
	ident := &Identity{ID: id}
	ident.Username, _ = claims["username"].(string)
	ident.Role, _ = claims["role"].(string)
	ident.TokenID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ident.ExpiresAt = exp.Time
	}

	if ident.TokenID != "" && isRevoked(ctx, ident.TokenID) {
		return nil, ErrTokenRevoked
	}
	return ident, nil
}

func uintClaim(raw interface{}) (uint, error) {
	switch v := raw.(type) {
	case float64:
		if v < 1 {
			return 0, ErrInvalidToken
		}
		return uint(v), nil
	case string:
		var n uint64
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n == 0 {
			return 0, ErrInvalidToken
		}
		return uint(n), nil
	}
	return 0, ErrInvalidToken
}

// isRevoked checks Redis first, then the revoked_tokens table. Store errors
// do not fail authentication.
func isRevoked(ctx context.Context, jti string) bool {
	if RedisClient != nil {
		res, err := RedisClient.Get(ctx, blacklistPrefix+jti).Result()
		return err == nil && res == "1"
	}
	if database.DB == nil {
		return false
	}
	var count int64
	err := database.DB.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("id = ? AND expires_at > ?", jti, time.Now()).
		Count(&count).Error
	return err == nil && count > 0
}

// RevokeJTI blacklists a token id until it would have expired anyway.
func RevokeJTI(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("empty jti")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if RedisClient != nil {
		return RedisClient.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
	}
	if database.DB == nil {
		return errors.New("no revocation store configured")
	}
	rec := models.RevokedToken{ID: jti, ExpiresAt: expiresAt, RevokedAt: time.Now()}
	return database.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"revoked_at"}),
	}).Create(&rec).Error
}

// PurgeRevokedTokens drops database revocations that have expired.
func PurgeRevokedTokens(ctx context.Context) (int64, error) {
	if database.DB == nil {
		return 0, nil
	}
	res := database.DB.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return tok, tok != ""
}

func generateJTI(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetUserID returns the authenticated subject id from the request context.
func GetUserID(r *http.Request) (uint, bool) {
	id, ok := r.Context().Value(UserIDKey).(uint)
	return id, ok
}

// GetTokenID returns the jti and expiry of the request's access token.
func GetTokenID(r *http.Request) (string, time.Time, bool) {
	jti, ok := r.Context().Value(TokenIDKey).(string)
	exp, _ := r.Context().Value(TokenExpKey).(time.Time)
	return jti, exp, ok && jti != ""
}
