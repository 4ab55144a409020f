package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"course-signup/config"
)

var (
	ErrTokenExpired    = errors.New("token 已过期")
	ErrTokenInvalid    = errors.New("token 无效")
	ErrMissingIdentity = errors.New("缺少 LINE 用户 ID")
)

// Identity 签发 Token 所需的用户信息
type Identity struct {
	ID          string
	LineUserID  string
	DisplayName string
}

// Claims 自定义 JWT 声明，字段统一使用 snake_case
type Claims struct {
	ID          string `json:"id"`
	LineUserID  string `json:"line_user_id"`
	DisplayName string `json:"display_name"`
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器（HS256，共享密钥）
// 没有刷新机制，过期后只能重新登录
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue 签发 Token，有效期 now + ttl
func (m *Manager) Issue(user Identity) (string, error) {
	if user.LineUserID == "" {
		return "", ErrMissingIdentity
	}

	now := m.now()
	claims := Claims{
		ID:          user.ID,
		LineUserID:  user.LineUserID,
		DisplayName: user.DisplayName,
		RegisteredClaims: jwtv5.RegisteredClaims{
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify 解析并验证 Token
// 任何失败（格式、签名、算法、过期）都只返回错误，不会 panic
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.LineUserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
