package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CaptureRateLimiter throttles outbound capture fetches on two tiers: a
// global limit protecting the server, and a per-domain limit so captures stay
// polite to target sites.
type CaptureRateLimiter struct {
	global     *rate.Limiter
	perDomain  sync.Map // map[string]*rate.Limiter
	domainRate float64
}

// NewCaptureRateLimiter creates a limiter. globalRate and perDomainRate are
// requests per second.
func NewCaptureRateLimiter(globalRate, perDomainRate float64) *CaptureRateLimiter {
	if globalRate <= 0 {
		globalRate = 10
	}
	if perDomainRate <= 0 {
		perDomainRate = 1
	}
	return &CaptureRateLimiter{
		global:     rate.NewLimiter(rate.Limit(globalRate), int(globalRate*2)),
		domainRate: perDomainRate,
	}
}

// Wait blocks until both tiers admit a fetch for the domain, honoring the
// crawl delay advertised by the domain's robots.txt.
func (rl *CaptureRateLimiter) Wait(ctx context.Context, domain string, crawlDelay time.Duration) error {
	if err := rl.global.Wait(ctx); err != nil {
		return err
	}
	return rl.domainLimiter(domain, crawlDelay).Wait(ctx)
}

func (rl *CaptureRateLimiter) domainLimiter(domain string, crawlDelay time.Duration) *rate.Limiter {
	if limiter, ok := rl.perDomain.Load(domain); ok {
		return limiter.(*rate.Limiter)
	}

	perSecond := rl.domainRate
	if crawlDelay > 0 {
		requested := 1.0 / crawlDelay.Seconds()
		if requested < perSecond {
			perSecond = requested
		}
	}
	if perSecond < 0.2 {
		perSecond = 0.2
	}

	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)
	actual, _ := rl.perDomain.LoadOrStore(domain, limiter)
	return actual.(*rate.Limiter)
}
