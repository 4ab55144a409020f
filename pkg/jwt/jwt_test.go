package jwt

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"course-signup/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret: "test-secret-key-for-unit-testing-2026",
		TokenTTL:  30 * 24 * time.Hour,
	})
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager()

	token, err := m.Issue(Identity{ID: "user-1", LineUserID: "U123", DisplayName: "小明"})
	if err != nil {
		t.Fatalf("Issue 失败: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify 失败: %v", err)
	}
	if claims.ID != "user-1" {
		t.Errorf("期望 ID=user-1，实际=%s", claims.ID)
	}
	if claims.LineUserID != "U123" {
		t.Errorf("期望 LineUserID=U123，实际=%s", claims.LineUserID)
	}
	if claims.DisplayName != "小明" {
		t.Errorf("期望 DisplayName=小明，实际=%s", claims.DisplayName)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 29*24*time.Hour || ttl > 31*24*time.Hour {
		t.Errorf("TTL 期望约 30 天，实际=%v", ttl)
	}
}

func TestIssue_SegmentsAreUnpaddedURLBase64(t *testing.T) {
	m := newTestManager()
	token, _ := m.Issue(Identity{ID: "user-1", LineUserID: "U123"})

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("期望 3 段，实际=%d", len(parts))
	}
	for _, p := range parts {
		if strings.ContainsAny(p, "+/=") {
			t.Errorf("段 %q 含有非 URL 安全字符或填充", p)
		}
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("payload 解码失败: %v", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("payload 非 JSON: %v", err)
	}
	for _, key := range []string{"id", "line_user_id", "display_name", "exp"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("payload 缺少字段 %s", key)
		}
	}
}

func TestIssue_MissingLineUserID(t *testing.T) {
	m := newTestManager()
	if _, err := m.Issue(Identity{ID: "user-1"}); err != ErrMissingIdentity {
		t.Errorf("期望 ErrMissingIdentity，实际: %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	m := newTestManager()
	for _, tok := range []string{"", "abc", "a.b", "invalid.token.string", "a.b.c.d"} {
		if _, err := m.Verify(tok); err != ErrTokenInvalid {
			t.Errorf("token=%q 期望 ErrTokenInvalid，实际: %v", tok, err)
		}
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	m1 := newTestManager()
	m2 := NewManager(&config.AuthConfig{JWTSecret: "different-secret-key-0000", TokenTTL: time.Hour})

	token, _ := m1.Issue(Identity{ID: "user-1", LineUserID: "U123"})
	if _, err := m2.Verify(token); err != ErrTokenInvalid {
		t.Errorf("不同密钥签名的 token 应返回 ErrTokenInvalid，实际: %v", err)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	m := newTestManager()
	token, _ := m.Issue(Identity{ID: "user-1", LineUserID: "U123"})
	parts := strings.Split(token, ".")

	forged, _ := json.Marshal(map[string]interface{}{
		"id": "user-1", "line_user_id": "U-admin", "exp": time.Now().Add(time.Hour).Unix(),
	})
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	if _, err := m.Verify(strings.Join(parts, ".")); err != ErrTokenInvalid {
		t.Errorf("篡改 payload 应返回 ErrTokenInvalid，实际: %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	m := newTestManager()
	m.now = func() time.Time { return time.Now().Add(-31 * 24 * time.Hour) }
	token, _ := m.Issue(Identity{ID: "user-1", LineUserID: "U123"})

	m.now = time.Now
	if _, err := m.Verify(token); err != ErrTokenExpired {
		t.Errorf("期望 ErrTokenExpired，实际: %v", err)
	}
}

func TestVerify_ExpiredWithBadSignatureStillFails(t *testing.T) {
	m := newTestManager()
	m.now = func() time.Time { return time.Now().Add(-31 * 24 * time.Hour) }
	token, _ := m.Issue(Identity{ID: "user-1", LineUserID: "U123"})
	m.now = time.Now

	other := NewManager(&config.AuthConfig{JWTSecret: "another-secret-key-0000", TokenTTL: time.Hour})
	if _, err := other.Verify(token); err == nil {
		t.Error("过期且签名错误的 token 不应通过验证")
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	m := newTestManager()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"id":"x","line_user_id":"U1","exp":9999999999}`))

	if _, err := m.Verify(header + "." + payload + "."); err != ErrTokenInvalid {
		t.Errorf("alg=none 应被拒绝，实际: %v", err)
	}
}
