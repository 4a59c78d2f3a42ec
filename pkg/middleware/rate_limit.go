package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/casevault/pkg/configs"
)

// limiterIdle 超过该时长未使用的 limiter 会被回收.
const limiterIdle = 15 * time.Minute

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 按键分配令牌桶.
type limiterSet struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*keyedLimiter
	swept   time.Time
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	return &limiterSet{
		rps:     rate.Limit(rps),
		burst:   burst,
		entries: make(map[string]*keyedLimiter),
		swept:   time.Now(),
	}
}

// reserve 返回是否放行以及建议的重试等待时间.
func (s *limiterSet) reserve(key string, now time.Time) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.swept) > limiterIdle {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(s.entries, k)
			}
		}

		s.swept = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &keyedLimiter{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.entries[key] = e
	}

	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}

	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}

	return true, 0
}

// RateLimitMiddleware 令牌桶限流.
// rate_limit.key 取值 global、ip、user（认证身份，缺省回退到 IP）或 header:Name.
// user 维度依赖 AuthMiddleware 先执行.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	set := newLimiterSet(cfg.RPS, cfg.Burst)
	keyOf := rateKeyFunc(cfg.Key)

	return func(c *gin.Context) {
		ok, wait := set.reserve(keyOf(c), time.Now())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(wait.Round(time.Second)/time.Second)+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests."})

			return
		}

		c.Next()
	}
}

func rateKeyFunc(mode string) func(*gin.Context) string {
	mode = strings.TrimSpace(mode)

	switch lower := strings.ToLower(mode); {
	case lower == "" || lower == "global":
		return func(*gin.Context) string { return "global" }
	case lower == "user":
		return func(c *gin.Context) string {
			if u := GetUser(c); u != "" {
				return "user:" + u
			}

			return "ip:" + c.ClientIP()
		}
	case strings.HasPrefix(lower, "header:"):
		name := strings.TrimSpace(mode[len("header:"):])

		return func(c *gin.Context) string {
			if v := c.GetHeader(name); v != "" {
				return "header:" + v
			}

			return "ip:" + c.ClientIP()
		}
	default:
		return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
	}
}
