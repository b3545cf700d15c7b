package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-for-token-service"

var baseTime = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

// fixedClock は差し替え可能な現在時刻を返す。
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func newTestService(clock *fixedClock) *Service {
	return New(testSecret, 0, WithClock(clock.Now))
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	svc := newTestService(&fixedClock{t: baseTime})

	signed, ok := svc.Issue(Claims{"id": 1, "role": "admin"}, time.Hour)
	require.True(t, ok)
	require.NotEmpty(t, signed)

	claims, ok := svc.Verify(signed)
	require.True(t, ok)

	// 数値はJSONの規則でfloat64として復元される
	assert.Equal(t, Claims{"id": float64(1), "role": "admin"}, claims)
}

func TestVerify_StripsRegisteredClaims(t *testing.T) {
	svc := newTestService(&fixedClock{t: baseTime})

	signed, ok := svc.Issue(Claims{"sub": "user-1"}, 0)
	require.True(t, ok)

	claims, ok := svc.Verify(signed)
	require.True(t, ok)
	assert.NotContains(t, claims, "exp")
	assert.NotContains(t, claims, "iat")
	assert.Equal(t, "user-1", claims["sub"])
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	clock := &fixedClock{t: baseTime}
	svc := newTestService(clock)

	signed, ok := svc.Issue(Claims{"id": "u"}, time.Hour)
	require.True(t, ok)

	clock.t = baseTime.Add(time.Hour - time.Second)
	_, ok = svc.Verify(signed)
	assert.True(t, ok, "token must be valid one second before expiry")

	clock.t = baseTime.Add(time.Hour + time.Second)
	_, ok = svc.Verify(signed)
	assert.False(t, ok, "token must be invalid one second after expiry")
}

func TestIssue_DefaultTTL(t *testing.T) {
	clock := &fixedClock{t: baseTime}
	svc := newTestService(clock)

	signed, ok := svc.Issue(Claims{}, 0)
	require.True(t, ok)

	clock.t = baseTime.Add(DefaultTTL - time.Second)
	_, ok = svc.Verify(signed)
	assert.True(t, ok)

	clock.t = baseTime.Add(DefaultTTL + time.Second)
	_, ok = svc.Verify(signed)
	assert.False(t, ok)
}

func TestIssue_ConfiguredDefaultTTL(t *testing.T) {
	clock := &fixedClock{t: baseTime}
	svc := New(testSecret, 10*time.Minute, WithClock(clock.Now))

	signed, ok := svc.Issue(Claims{}, -1)
	require.True(t, ok)

	clock.t = baseTime.Add(11 * time.Minute)
	_, ok = svc.Verify(signed)
	assert.False(t, ok)
}

func TestVerify_TamperedSignature(t *testing.T) {
	svc := newTestService(&fixedClock{t: baseTime})

	signed, ok := svc.Issue(Claims{"id": 1}, time.Hour)
	require.True(t, ok)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)

	// 末尾の文字は未使用ビットを含むため、署名の先頭文字を変更する
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, ok = svc.Verify(tampered)
	assert.False(t, ok)
}

func TestVerify_TamperedPayload(t *testing.T) {
	svc := newTestService(&fixedClock{t: baseTime})

	signed, ok := svc.Issue(Claims{"role": "patient"}, time.Hour)
	require.True(t, ok)

	other, ok := svc.Issue(Claims{"role": "admin"}, time.Hour)
	require.True(t, ok)

	parts := strings.Split(signed, ".")
	otherParts := strings.Split(other, ".")
	forged := parts[0] + "." + otherParts[1] + "." + parts[2]

	_, ok = svc.Verify(forged)
	assert.False(t, ok)
}

func TestVerify_WrongSecret(t *testing.T) {
	clock := &fixedClock{t: baseTime}
	signed, ok := New("another-secret", 0, WithClock(clock.Now)).Issue(Claims{"id": 1}, time.Hour)
	require.True(t, ok)

	_, ok = newTestService(clock).Verify(signed)
	assert.False(t, ok)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	clock := &fixedClock{t: baseTime}
	svc := newTestService(clock)

	claims := jwt.MapClaims{"id": 1, "exp": baseTime.Add(time.Hour).Unix()}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, ok := svc.Verify(hs512)
	assert.False(t, ok)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, ok = svc.Verify(none)
	assert.False(t, ok)
}

func TestVerify_RequiresExpiry(t *testing.T) {
	svc := newTestService(&fixedClock{t: baseTime})

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 1}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, ok := svc.Verify(noExp)
	assert.False(t, ok)
}

func TestVerify_Malformed(t *testing.T) {
	svc := newTestService(&fixedClock{t: baseTime})

	for _, input := range []string{"", "abc", "a.b.c", "not.a.jwt.token"} {
		claims, ok := svc.Verify(input)
		assert.False(t, ok, input)
		assert.Nil(t, claims, input)
	}
}

func TestEmptySecret(t *testing.T) {
	svc := New("", 0)

	signed, ok := svc.Issue(Claims{"id": 1}, time.Hour)
	assert.False(t, ok)
	assert.Empty(t, signed)

	_, ok = svc.Verify("eyJhbGciOiJIUzI1NiJ9.e30.c2ln")
	assert.False(t, ok)
}

func TestIssue_UnencodablePayload(t *testing.T) {
	svc := newTestService(&fixedClock{t: baseTime})

	signed, ok := svc.Issue(Claims{"ch": make(chan int)}, time.Hour)
	assert.False(t, ok)
	assert.Empty(t, signed)
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{input: "2h", want: 2 * time.Hour, ok: true},
		{input: "90m", want: 90 * time.Minute, ok: true},
		{input: "7d", want: 7 * 24 * time.Hour, ok: true},
		{input: "3600", want: time.Hour, ok: true},
		{input: " 1h ", want: time.Hour, ok: true},
		{input: "", ok: false},
		{input: "0", ok: false},
		{input: "-1h", ok: false},
		{input: "xd", ok: false},
		{input: "forever", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseTTL(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
