// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 表示签名不匹配、已过期或结构不正确的 token。
var ErrInvalidToken = errors.New("invalid token")

// JWTManager 负责管理 JWT 的生成和验证。
// 匿名身份与管理员会话各使用一个实例，密钥与有效期互不相同。
type JWTManager struct {
	secretKey []byte        // secretKey 用于签名和验证 token 的密钥
	tokenDur  time.Duration // tokenDur 定义了 token 的有效期
}

// IdentityClaims 是匿名用户身份 token 中携带的数据。
type IdentityClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// SessionClaims 是管理员会话 cookie 中携带的数据。
type SessionClaims struct {
	AdminID    string `json:"adminId"`
	Email      string `json:"email"`
	LoggedInAt string `json:"loggedInAt"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secret),
		tokenDur:  ttl,
	}
}

// TTL 返回 token 的有效期。
func (m *JWTManager) TTL() time.Duration {
	return m.tokenDur
}

func (m *JWTManager) registered(now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDur)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func (m *JWTManager) sign(claims jwt.Claims) (string, error) {
	// 使用 HS256 签名方法创建新的 token 对象
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secretKey)
}

func (m *JWTManager) parse(tokenString string, claims jwt.Claims) error {
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return errors.Join(ErrInvalidToken, err)
	}
	if !t.Valid {
		return ErrInvalidToken
	}
	return nil
}

// GenerateIdentityToken 为匿名用户生成身份 token。
func (m *JWTManager) GenerateIdentityToken(userID string) (string, error) {
	return m.sign(IdentityClaims{UserID: userID, RegisteredClaims: m.registered(time.Now())})
}

// VerifyIdentityToken 验证身份 token 并返回其中的用户 ID。
func (m *JWTManager) VerifyIdentityToken(tokenString string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateSessionToken 为登录成功的管理员生成会话 token。
func (m *JWTManager) GenerateSessionToken(adminID, email string, loggedInAt time.Time) (string, error) {
	return m.sign(SessionClaims{
		AdminID:          adminID,
		Email:            email,
		LoggedInAt:       loggedInAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		RegisteredClaims: m.registered(loggedInAt),
	})
}

// VerifySessionToken 验证管理员会话 token。
func (m *JWTManager) VerifySessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := m.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.AdminID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
