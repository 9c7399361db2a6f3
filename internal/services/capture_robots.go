package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// RobotsChecker verifies robots.txt before a URL capture. Parsed robots files
// are cached for 24 hours per domain. Missing or malformed robots.txt allows
// the fetch with a 1s default crawl delay.
type RobotsChecker struct {
	cache     *gocache.Cache
	userAgent string
	client    *http.Client
}

// NewRobotsChecker creates a robots.txt checker.
func NewRobotsChecker(userAgent string) *RobotsChecker {
	return &RobotsChecker{
		cache:     gocache.New(24*time.Hour, time.Hour),
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CanFetch reports whether the URL may be captured and the crawl delay to
// honor.
func (rc *RobotsChecker) CanFetch(ctx context.Context, urlStr string) (bool, time.Duration, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false, 0, fmt.Errorf("invalid URL: %w", err)
	}

	origin := parsedURL.Scheme + "://" + parsedURL.Host

	if cached, found := rc.cache.Get(origin); found {
		return rc.test(cached.(*robotstxt.RobotsData), parsedURL.Path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to build robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		return true, time.Second, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return true, time.Second, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return true, time.Second, nil
	}

	robotsData, err := robotstxt.FromBytes(body)
	if err != nil {
		return true, time.Second, nil
	}

	rc.cache.Set(origin, robotsData, gocache.DefaultExpiration)

	return rc.test(robotsData, parsedURL.Path)
}

func (rc *RobotsChecker) test(data *robotstxt.RobotsData, path string) (bool, time.Duration, error) {
	group := data.FindGroup(rc.userAgent)

	delay := time.Second
	if group.CrawlDelay > 0 {
		delay = group.CrawlDelay
		if delay > 10*time.Second {
			delay = 10 * time.Second
		}
	}

	return group.Test(path), delay, nil
}
