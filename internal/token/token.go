// Package token は署名付きベアラートークンの発行と検証を行う。
//
// トークンはHS256で署名したJWTで、サーバー側には保存しない。
// 検証の失敗理由（形式不正・期限切れ・改ざん）は呼び出し側に区別して返さない。
package token

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL はttl未指定時のトークン有効期間。
const DefaultTTL = 2 * time.Hour

// 発行時に付与され、検証時に取り除かれる登録済みクレーム。
const (
	claimExpiresAt = "exp"
	claimIssuedAt  = "iat"
)

// Claims はトークンに含める任意のペイロード。
// 検証後の数値はJSONの規則に従いfloat64として復元される。
type Claims map[string]any

// Service はトークンの発行と検証を行う。
// 生成後は不変で、複数のゴルーチンから同時に使用できる。
type Service struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithClock は有効期限の計算と検証に使う時刻関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New はServiceを生成する。defaultTTLが0以下の場合はDefaultTTLを使う。
// secretが空でも生成はできるが、発行と検証はすべて失敗する。
func New(secret string, defaultTTL time.Duration, opts ...Option) *Service {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	s := &Service{
		secret:     []byte(secret),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue はペイロードに有効期限を付与して署名したトークンを返す。
// ttlが0以下の場合は既定の有効期間を使う。
// 署名できなかった場合は("", false)を返す。
func (s *Service) Issue(payload Claims, ttl time.Duration) (string, bool) {
	if len(s.secret) == 0 {
		return "", false
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.now()
	claims := make(jwt.MapClaims, len(payload)+2)
	for k, v := range payload {
		claims[k] = v
	}
	claims[claimIssuedAt] = now.Unix()
	claims[claimExpiresAt] = now.Add(ttl).Unix()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", false
	}
	return signed, true
}

// Verify は署名と有効期限を検証し、ペイロードを返す。
// いずれかの検証に失敗した場合は(nil, false)を返す。
func (s *Service) Verify(tokenString string) (Claims, bool) {
	if len(s.secret) == 0 || tokenString == "" {
		return nil, false
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, false
	}

	payload := make(Claims, len(claims))
	for k, v := range claims {
		if k == claimExpiresAt || k == claimIssuedAt {
			continue
		}
		payload[k] = v
	}
	return payload, true
}

// ParseTTL は有効期間の文字列を解釈する。
// "2h"や"90m"などのGoの期間表記に加え、"7d"の日数表記と秒数のみの表記を受け付ける。
func ParseTTL(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	var d time.Duration
	switch {
	case strings.HasSuffix(s, "d"):
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, false
		}
		d = time.Duration(days) * 24 * time.Hour
	default:
		if secs, err := strconv.Atoi(s); err == nil {
			d = time.Duration(secs) * time.Second
			break
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, false
		}
		d = parsed
	}

	if d <= 0 {
		return 0, false
	}
	return d, true
}
