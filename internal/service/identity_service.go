package service

import (
	"errors"
	"strings"
	"time"

	"whispr-go/pkg/log"
	"whispr-go/pkg/token"

	"github.com/google/uuid"
)

// AnonymousIDPrefix 是匿名用户 ID 的前缀。
const AnonymousIDPrefix = "anon_"

// Identity 是签发给匿名用户的身份。
type Identity struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// IdentityService 签发和解析匿名身份。
type IdentityService interface {
	Issue(existingToken string) (*Identity, error)
	Resolve(tokenString string) (string, error)
}

type identityService struct {
	jwtManager *token.JWTManager
}

// NewIdentityService 创建一个新的 IdentityService 实例。
func NewIdentityService(jwtManager *token.JWTManager) IdentityService {
	return &identityService{jwtManager: jwtManager}
}

// Issue 在已有 token 有效时原样返回，否则生成新的匿名 ID。
func (s *identityService) Issue(existingToken string) (*Identity, error) {
	if existingToken != "" {
		if userID, err := s.Resolve(existingToken); err == nil {
			return &Identity{UserID: userID, Token: existingToken}, nil
		}
	}
	userID := AnonymousIDPrefix + uuid.NewString()
	tok, err := s.jwtManager.GenerateIdentityToken(userID)
	if err != nil {
		return nil, err
	}
	log.Infof("[IdentityService] 签发新的匿名身份: %s, 有效期: %s", userID, s.jwtManager.TTL().Round(time.Hour))
	return &Identity{UserID: userID, Token: tok}, nil
}

// Resolve 校验 token 并返回匿名用户 ID。
func (s *identityService) Resolve(tokenString string) (string, error) {
	claims, err := s.jwtManager.VerifyIdentityToken(tokenString)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(claims.UserID, AnonymousIDPrefix) {
		return "", errors.Join(token.ErrInvalidToken, errors.New("not an anonymous id"))
	}
	return claims.UserID, nil
}
