package service

import (
	"time"

	"whispr-go/internal/config"
	"whispr-go/pkg/hash"
	"whispr-go/pkg/log"
	"whispr-go/pkg/token"
)

// AdminSessionCookie 是管理员会话 cookie 的名称。
const AdminSessionCookie = "whispr-admin-session"

// AdminSession 是一次成功登录的结果。
type AdminSession struct {
	Token      string    `json:"-"`
	AdminID    string    `json:"adminId"`
	Email      string    `json:"email"`
	LoggedInAt time.Time `json:"loggedInAt"`
}

// AdminAuthService 负责管理员登录和会话校验。凭证来自配置。
type AdminAuthService interface {
	Login(email, password string) (*AdminSession, error)
	Verify(tokenString string) (*token.SessionClaims, error)
	MaxAge() time.Duration
}

type adminAuthService struct {
	cfg        config.AdminConfig
	jwtManager *token.JWTManager
}

// NewAdminAuthService 创建一个新的 AdminAuthService 实例。
func NewAdminAuthService(cfg config.AdminConfig, jwtManager *token.JWTManager) AdminAuthService {
	if cfg.PasswordHash == "" {
		log.Warnf("[AdminAuthService] 未配置 admin.password_hash, 管理员将无法登录")
	}
	return &adminAuthService{cfg: cfg, jwtManager: jwtManager}
}

// Login 校验邮箱和密码，成功后签发会话 token。
func (s *adminAuthService) Login(email, password string) (*AdminSession, error) {
	if s.cfg.PasswordHash == "" || email != s.cfg.Email || !hash.CheckPasswordHash(password, s.cfg.PasswordHash) {
		log.Warnf("[AdminAuthService] 管理员登录失败, email: %s", email)
		return nil, ErrInvalidCredentials
	}
	now := time.Now().UTC()
	tok, err := s.jwtManager.GenerateSessionToken(s.cfg.ID, s.cfg.Email, now)
	if err != nil {
		return nil, err
	}
	log.Infof("[AdminAuthService] 管理员登录成功, adminId: %s", s.cfg.ID)
	return &AdminSession{Token: tok, AdminID: s.cfg.ID, Email: s.cfg.Email, LoggedInAt: now}, nil
}

// Verify 校验会话 token。
func (s *adminAuthService) Verify(tokenString string) (*token.SessionClaims, error) {
	return s.jwtManager.VerifySessionToken(tokenString)
}

func (s *adminAuthService) MaxAge() time.Duration {
	return s.jwtManager.TTL()
}
