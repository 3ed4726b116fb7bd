package utils

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRegisterCooldown means the IP registered or tried to moments ago.
	ErrRegisterCooldown = errors.New("registration attempted too recently")
	// ErrRegisterDailyLimit means the IP used up its successful signups for today.
	ErrRegisterDailyLimit = errors.New("daily registration limit reached")
)

// RegisterGuard throttles signups per client IP in Redis. Without a client, or when Redis
// errors, every attempt is allowed.
type RegisterGuard struct {
	rc       *redis.Client
	cooldown time.Duration
	perDay   int
	now      func() time.Time
}

// NewRegisterGuard creates a guard. Zero cooldown or perDay disables that check.
func NewRegisterGuard(rc *redis.Client, cooldown time.Duration, perDay int) *RegisterGuard {
	return &RegisterGuard{rc: rc, cooldown: cooldown, perDay: perDay, now: time.Now}
}

func (g *RegisterGuard) dayKey(ip string) string {
	return "reg:succday:" + ip + ":" + g.now().Format("20060102")
}

// Allow checks the daily limit and then claims the cooldown slot for ip.
func (g *RegisterGuard) Allow(ctx context.Context, ip string) error {
	if g == nil || g.rc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if g.perDay > 0 {
		n, err := g.rc.Get(ctx, g.dayKey(ip)).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			Sugar.Warnf("register guard read failed ip=%s err=%v", ip, err)
			return nil
		}
		if n >= g.perDay {
			return ErrRegisterDailyLimit
		}
	}
	if g.cooldown > 0 {
		ok, err := g.rc.SetNX(ctx, "reg:cooldown:"+ip, "1", g.cooldown).Result()
		if err != nil {
			Sugar.Warnf("register guard cooldown failed ip=%s err=%v", ip, err)
			return nil
		}
		if !ok {
			return ErrRegisterCooldown
		}
	}
	return nil
}

// Succeeded counts a completed signup for ip until the end of the day.
func (g *RegisterGuard) Succeeded(ctx context.Context, ip string) {
	if g == nil || g.rc == nil || g.perDay <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	key := g.dayKey(ip)
	if err := g.rc.Incr(ctx, key).Err(); err != nil {
		Sugar.Warnf("register guard increment failed ip=%s err=%v", ip, err)
		return
	}
	now := g.now()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	_ = g.rc.ExpireAt(ctx, key, endOfDay).Err()
}
