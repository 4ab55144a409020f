// Package line 封装 LINE Login 与 Messaging API 调用。
package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"resty.dev/v3"

	"course-signup/config"
	apperrors "course-signup/pkg/errors"
	"course-signup/pkg/flex"
)

const (
	authorizePath  = "/oauth2/v2.1/authorize"
	tokenPath      = "/oauth2/v2.1/token"
	profilePath    = "/v2/profile"
	friendshipPath = "/friendship/v1/status"
	pushPath       = "/v2/bot/message/push"
)

// TokenSet 授权码换取的令牌
type TokenSet struct {
	AccessToken string
	IDToken     string
}

// Profile LINE 用户资料
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl"`
	StatusMessage string `json:"statusMessage"`
}

type friendshipStatus struct {
	FriendFlag bool `json:"friendFlag"`
}

type pushRequest struct {
	To       string         `json:"to"`
	Messages []flex.Message `json:"messages"`
}

// Client LINE API 客户端
type Client struct {
	cfg        *config.LineConfig
	rest       *resty.Client
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient 创建 LINE 客户端
func NewClient(cfg *config.LineConfig, logger *zap.Logger) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	apiBase := strings.TrimRight(cfg.APIBaseURL, "/")
	authBase := strings.TrimRight(cfg.AuthBaseURL, "/")

	rest := resty.New().
		SetBaseURL(apiBase).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		cfg:  cfg,
		rest: rest,
		oauth: &oauth2.Config{
			ClientID:     cfg.ChannelID,
			ClientSecret: cfg.ChannelSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"profile", "openid"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authBase + authorizePath,
				TokenURL:  apiBase + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Close 释放底层连接
func (c *Client) Close() error {
	return c.rest.Close()
}

// AuthCodeURL LINE 授权页地址，bot_prompt=aggressive 引导加官方账号好友
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("bot_prompt", "aggressive"))
}

// ExchangeCode 用授权码换取 access token 与 id token
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			c.logger.Warn("LINE token 交换失败",
				zap.Int("status", re.Response.StatusCode),
				zap.String("body", string(re.Body)),
			)
			return nil, fmt.Errorf("%w: token 交换失败 (%d): %s", apperrors.ErrUpstreamAuth, re.Response.StatusCode, string(re.Body))
		}
		c.logger.Warn("LINE token 交换失败", zap.Error(err))
		return nil, fmt.Errorf("%w: token 交换失败: %v", apperrors.ErrUpstreamAuth, err)
	}

	set := &TokenSet{AccessToken: tok.AccessToken}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		set.IDToken = idToken
	}
	return set, nil
}

// GetProfile 获取 LINE 用户资料
func (c *Client) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile Profile
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&profile).
		Get(profilePath)
	if err != nil {
		c.logger.Warn("获取 LINE 用户资料失败", zap.Error(err))
		return nil, fmt.Errorf("%w: 获取用户资料失败: %v", apperrors.ErrUpstreamAuth, err)
	}
	if resp.IsError() {
		c.logger.Warn("获取 LINE 用户资料失败",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return nil, fmt.Errorf("%w: 获取用户资料失败 (%d): %s", apperrors.ErrUpstreamAuth, resp.StatusCode(), resp.String())
	}
	if profile.UserID == "" {
		return nil, fmt.Errorf("%w: 用户资料缺少 userId", apperrors.ErrUpstreamAuth)
	}
	return &profile, nil
}

// CheckFriendship 查询用户是否已加官方账号好友
// 调用失败时返回 AssumeFriendOnError 配置值
func (c *Client) CheckFriendship(ctx context.Context, accessToken string) bool {
	var status friendshipStatus
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&status).
		Get(friendshipPath)
	if err != nil {
		c.logger.Warn("查询好友状态失败，使用默认值",
			zap.Error(err),
			zap.Bool("assume", c.cfg.AssumeFriendOnError),
		)
		return c.cfg.AssumeFriendOnError
	}
	if resp.IsError() {
		c.logger.Warn("查询好友状态失败，使用默认值",
			zap.Int("status", resp.StatusCode()),
			zap.Bool("assume", c.cfg.AssumeFriendOnError),
		)
		return c.cfg.AssumeFriendOnError
	}
	return status.FriendFlag
}

// SendPush 推送消息给指定用户
func (c *Client) SendPush(ctx context.Context, to string, messages ...flex.Message) error {
	if to == "" {
		return errors.New("推送对象为空")
	}
	if len(messages) == 0 {
		return nil
	}
	if c.cfg.ChannelAccessToken == "" {
		return errors.New("未配置 LINE channel access token")
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.ChannelAccessToken).
		SetHeader("Content-Type", "application/json").
		SetBody(pushRequest{To: to, Messages: messages}).
		Post(pushPath)
	if err != nil {
		c.logger.Error("LINE 推送失败", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("LINE 推送失败: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("LINE 推送失败",
			zap.String("to", to),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return fmt.Errorf("LINE 推送失败 (%d): %s", resp.StatusCode(), resp.String())
	}

	c.logger.Info("LINE 推送成功", zap.String("to", to), zap.Int("messages", len(messages)))
	return nil
}
