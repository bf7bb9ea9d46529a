package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fakeClock(t *testing.T, start time.Time) *int64 {
	t.Helper()
	now := start.UnixNano()
	saved := nowUnix
	nowUnix = func() int64 { return now }
	t.Cleanup(func() { nowUnix = saved })
	return &now
}

func TestClientIPGeneric(t *testing.T) {
	cases := []struct {
		name    string
		remote  string
		xff     string
		trusted []string
		want    string
	}{
		{name: "direct remote", remote: "203.0.113.5:54321", want: "203.0.113.5"},
		{name: "trusted proxy ip", remote: "198.51.100.10:443", xff: "203.0.113.7, 198.51.100.10", trusted: []string{"198.51.100.10"}, want: "203.0.113.7"},
		{name: "trusted proxy cidr", remote: "10.0.3.4:443", xff: "203.0.113.9", trusted: []string{"10.0.0.0/8"}, want: "203.0.113.9"},
		{name: "untrusted proxy", remote: "198.51.100.11:443", xff: "203.0.113.8, 198.51.100.11", trusted: []string{"198.51.100.10"}, want: "198.51.100.11"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.local/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			require.Equal(t, tc.want, clientIPGeneric(req, tc.trusted))
		})
	}
}

func TestIPRateLimiter_WindowRollsOver(t *testing.T) {
	now := fakeClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	l := NewIPRateLimiter(2, time.Minute, nil)
	defer l.Stop()

	count, retry := l.allow("203.0.113.5")
	require.Equal(t, 1, count)
	require.Zero(t, retry)

	*now += int64(20 * time.Second)
	count, retry = l.allow("203.0.113.5")
	require.Equal(t, 2, count)
	require.Zero(t, retry)

	count, retry = l.allow("203.0.113.5")
	require.Equal(t, 3, count)
	require.Equal(t, 40, retry)

	// other clients keep their own window
	count, retry = l.allow("203.0.113.6")
	require.Equal(t, 1, count)
	require.Zero(t, retry)

	// first hit has aged out, the two at +20s remain
	*now += int64(41 * time.Second)
	count, retry = l.allow("203.0.113.5")
	require.Equal(t, 3, count)
	require.Equal(t, 19, retry)

	*now += int64(2 * time.Minute)
	count, retry = l.allow("203.0.113.5")
	require.Equal(t, 1, count)
	require.Zero(t, retry)
}

func TestLockoutDuration(t *testing.T) {
	steps := map[int]time.Duration{
		0:                      0,
		loginFreeFailures - 1:  0,
		loginFreeFailures:      time.Minute,
		loginFreeFailures + 1:  5 * time.Minute,
		loginFreeFailures + 2:  15 * time.Minute,
		loginFreeFailures + 3:  30 * time.Minute,
		loginFreeFailures + 20: 30 * time.Minute,
	}
	for failures, want := range steps {
		require.Equal(t, want, lockoutDuration(failures), "failures=%d", failures)
	}
}

func TestAccountLock_Expires(t *testing.T) {
	now := fakeClock(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	account := "lock-expiry@example.com"
	t.Cleanup(func() { ResetFailedLogin(ctx, account) })

	for i := 0; i < loginFreeFailures; i++ {
		RecordFailedLogin(ctx, account)
	}
	locked, left := IsAccountLocked(ctx, account)
	require.True(t, locked)
	require.Equal(t, time.Minute, left)

	*now += int64(time.Minute + time.Second)
	locked, _ = IsAccountLocked(ctx, account)
	require.False(t, locked)
}
