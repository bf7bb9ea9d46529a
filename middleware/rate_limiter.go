package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Kazutech1/cucker-sub000/utils"
)

type timestamps []int64 // unix nanos

var nowUnix = func() int64 { return time.Now().UnixNano() }

// IPRateLimiter is a per-IP sliding window limiter. X-Forwarded-For is only
// honored when the peer is a trusted proxy.
type IPRateLimiter struct {
	maxReq      int
	window      time.Duration
	trustedCIDR []string

	mu    sync.Mutex
	state map[string]timestamps
	stop  chan struct{}
}

func NewIPRateLimiter(maxReq int, window time.Duration, trustedProxies []string) *IPRateLimiter {
	l := &IPRateLimiter{
		maxReq:      maxReq,
		window:      window,
		trustedCIDR: trustedProxies,
		state:       make(map[string]timestamps),
		stop:        make(chan struct{}),
	}
	go l.cleanupLoop(time.Minute)
	return l
}

// Stop ends the cleanup goroutine.
func (l *IPRateLimiter) Stop() {
	close(l.stop)
}

// clientIPGeneric returns the client IP string. If trustedCIDR is provided,
// X-Forwarded-For / X-Real-IP headers are honored when remote addr is inside
// one of the trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && remoteIP != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// allow records a hit for ip and returns the hit count in the window and,
// when over the limit, the seconds until the oldest hit expires.
func (l *IPRateLimiter) allow(ip string) (int, int) {
	now := nowUnix()
	cutoff := now - int64(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()
	filtered := l.state[ip][:0]
	for _, ts := range l.state[ip] {
		if ts >= cutoff {
			filtered = append(filtered, ts)
		}
	}
	filtered = append(filtered, now)
	l.state[ip] = filtered

	count := len(filtered)
	if count <= l.maxReq {
		return count, 0
	}
	retryAfter := int((filtered[0] + int64(l.window) - now) / int64(time.Second))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return count, retryAfter
}

// Middleware applies per-IP limits and sets rate-limit headers.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, retryAfter := l.allow(clientIPGeneric(r, l.trustedCIDR))

		remaining := l.maxReq - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.maxReq))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if retryAfter > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
				Success: false,
				Message: "Too many requests, try again later",
				Data:    map[string]int{"retryAfterSeconds": retryAfter},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *IPRateLimiter) cleanupLoop(every time.Duration) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-tick.C:
		}
		l.mu.Lock()
		cutoff := nowUnix() - int64(l.window)
		for k, arr := range l.state {
			if len(arr) == 0 || arr[len(arr)-1] < cutoff {
				delete(l.state, k)
			}
		}
		l.mu.Unlock()
	}
}

// Login lockout. After loginFreeFailures failed attempts an account is
// locked for a growing period. Redis keeps the counters when configured so
// every instance sees the same lock.
const loginFreeFailures = 5

var (
	loginMu   sync.Mutex
	failedMap = make(map[string]int)
	lockMap   = make(map[string]int64) // key -> lock until, unix nanos
)

func lockoutDuration(failures int) time.Duration {
	switch over := failures - loginFreeFailures; {
	case over < 0:
		return 0
	case over == 0:
		return time.Minute
	case over == 1:
		return 5 * time.Minute
	case over == 2:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// IsAccountLocked reports whether logins for account are blocked and for how long.
func IsAccountLocked(ctx context.Context, account string) (bool, time.Duration) {
	if utils.RedisClient != nil {
		ttl, err := utils.RedisClient.TTL(ctx, "login:lock:"+account).Result()
		if err == nil && ttl > 0 {
			return true, ttl
		}
		if err == nil {
			return false, 0
		}
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	until := lockMap[account]
	if until == 0 {
		return false, 0
	}
	now := nowUnix()
	if until > now {
		return true, time.Duration(until - now)
	}
	delete(lockMap, account)
	return false, 0
}

func RecordFailedLogin(ctx context.Context, account string) {
	if utils.RedisClient != nil {
		failKey := "login:fail:" + account
		failures, err := utils.RedisClient.Incr(ctx, failKey).Result()
		if err == nil {
			_ = utils.RedisClient.Expire(ctx, failKey, 30*time.Minute).Err()
			if d := lockoutDuration(int(failures)); d > 0 {
				_ = utils.RedisClient.Set(ctx, "login:lock:"+account, "1", d).Err()
			}
			return
		}
	}

	loginMu.Lock()
	defer loginMu.Unlock()
	failedMap[account]++
	if d := lockoutDuration(failedMap[account]); d > 0 {
		lockMap[account] = nowUnix() + int64(d)
	}
}

func ResetFailedLogin(ctx context.Context, account string) {
	if utils.RedisClient != nil {
		_ = utils.RedisClient.Del(ctx, "login:fail:"+account, "login:lock:"+account).Err()
	}
	loginMu.Lock()
	defer loginMu.Unlock()
	delete(failedMap, account)
	delete(lockMap, account)
}
