package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"course-signup/config"
	"course-signup/internal/dto"
	"course-signup/internal/model"
	"course-signup/internal/repository"
	"course-signup/pkg/jwt"
)

// ── 认证模块业务错误 ──

var (
	ErrMissingCode  = errors.New("缺少授权码")
	ErrLoginDenied  = errors.New("用户取消了 LINE 授权")
	ErrInvalidState = errors.New("登录状态无效或已过期，请重新登录")
)

const loginStateTTL = 10 * time.Minute

// AuthService LINE 登录业务接口
type AuthService interface {
	// LoginURL 生成 LINE 授权页地址
	LoginURL(ctx context.Context) (string, error)
	// HandleCallback 授权码换 token → 资料 → 好友状态 → upsert 用户 → 签发 Token
	HandleCallback(ctx context.Context, q *dto.LineCallbackQuery) (*dto.LoginResult, error)
	// RedirectURL 登录完成后跳回前端的地址，err 非空时带 error 参数
	RedirectURL(result *dto.LoginResult, err error) string
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	line   LineAPI
	states StateStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	line LineAPI,
	states StateStore,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		line:   line,
		states: states,
		logger: logger,
		now:    time.Now,
	}
}

func (s *authService) LoginURL(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if s.states != nil {
		var err error
		if state, err = s.states.NewLoginState(ctx, loginStateTTL); err != nil {
			s.logger.Error("保存登录 state 失败", zap.Error(err))
			return "", err
		}
	}
	return s.line.AuthCodeURL(state), nil
}

func (s *authService) HandleCallback(ctx context.Context, q *dto.LineCallbackQuery) (*dto.LoginResult, error) {
	if q.Error != "" {
		s.logger.Info("LINE 授权被拒绝", zap.String("error", q.Error), zap.String("description", q.ErrorDescription))
		return nil, ErrLoginDenied
	}
	if q.Code == "" {
		return nil, ErrMissingCode
	}

	// 1. 校验 state（未启用 Redis 时跳过）
	if s.states != nil {
		if err := s.states.ConsumeLoginState(ctx, q.State); err != nil {
			s.logger.Warn("登录 state 校验失败", zap.Error(err))
			return nil, ErrInvalidState
		}
	}

	// 2. 授权码换 token
	tokens, err := s.line.ExchangeCode(ctx, q.Code)
	if err != nil {
		return nil, err
	}

	// 3. 用户资料与好友状态
	profile, err := s.line.GetProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	isFriend := s.line.CheckFriendship(ctx, tokens.AccessToken)

	// 4. upsert 用户
	now := s.now()
	user := &model.User{
		LineUserID:    profile.UserID,
		DisplayName:   profile.DisplayName,
		PictureURL:    profile.PictureURL,
		StatusMessage: profile.StatusMessage,
		IsLineFriend:  isFriend,
		LastLoginAt:   &now,
	}
	if isFriend {
		user.FriendAddedAt = &now
	}
	if err := s.repo.User.UpsertByLineUserID(ctx, user); err != nil {
		s.logger.Error("保存用户失败", zap.String("line_user_id", profile.UserID), zap.Error(err))
		return nil, err
	}

	// 5. 签发 Token
	token, err := s.jwtMgr.Issue(jwt.Identity{
		ID:          user.ID,
		LineUserID:  user.LineUserID,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		s.logger.Error("签发 Token 失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("LINE 登录成功", zap.String("user_id", user.ID), zap.Bool("is_line_friend", isFriend))

	result := &dto.LoginResult{
		Token: token,
		User: dto.LoginUser{
			ID:           user.ID,
			LineUserID:   user.LineUserID,
			DisplayName:  user.DisplayName,
			PictureURL:   user.PictureURL,
			IsLineFriend: user.IsLineFriend,
		},
	}
	if user.Mobile != nil {
		result.User.Mobile = *user.Mobile
	}
	return result, nil
}

func (s *authService) RedirectURL(result *dto.LoginResult, err error) string {
	base := strings.TrimRight(s.cfg.Server.SiteURL, "/") + "/registration.html"
	values := url.Values{}

	if err != nil || result == nil {
		msg := "登录失败"
		if err != nil {
			msg += "：" + err.Error()
		}
		values.Set("error", msg)
		return base + "?" + values.Encode()
	}

	userJSON, mErr := json.Marshal(result.User)
	if mErr != nil {
		values.Set("error", "登录失败")
		return base + "?" + values.Encode()
	}
	values.Set("token", result.Token)
	values.Set("user", string(userJSON))
	return base + "?" + values.Encode()
}
