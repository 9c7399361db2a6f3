package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/markusmobius/go-trafilatura"

	"later/internal/models"
)

const (
	captureUserAgent   = "Later-Bot/1.0 (+https://later.example.com/bot)"
	captureMaxBodySize = 10 * 1024 * 1024 // 10MB
	captureSummaryMax  = 500
)

// CaptureService turns URLs and raw notes into stored content items. URL
// captures fetch the page, respect robots.txt and rate limits, and extract
// the readable article body.
type CaptureService struct {
	repo      ContentRepository
	limiter   *CaptureRateLimiter
	robots    *RobotsChecker
	client    *http.Client
	analytics *AnalyticsService
}

// NewCaptureService creates a capture service. analytics may be nil.
func NewCaptureService(repo ContentRepository, limiter *CaptureRateLimiter, analytics *AnalyticsService) *CaptureService {
	return &CaptureService{
		repo:    repo,
		limiter: limiter,
		robots:  NewRobotsChecker(captureUserAgent),
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				IdleConnTimeout:     60 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
			},
		},
		analytics: analytics,
	}
}

// Capture stores a new content item from the request. Web captures go through
// the fetch/extract pipeline; note captures are stored as-is.
func (s *CaptureService) Capture(ctx context.Context, userID string, req *models.CreateContentRequest) (*models.ContentItem, error) {
	source := req.Source
	if source == "" {
		if req.URL != "" {
			source = models.ContentSourceWeb
		} else {
			source = models.ContentSourceNote
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = models.ContentPriorityMedium
	}
	if !models.ValidContentPriority(priority) {
		return nil, fmt.Errorf("invalid priority %q", priority)
	}

	item := &models.ContentItem{
		UserID:          userID,
		Title:           req.Title,
		OriginalContent: req.Content,
		URL:             req.URL,
		Source:          source,
		Status:          models.ContentStatusCaptured,
		Priority:        priority,
		Tags:            req.Tags,
		Categories:      req.Categories,
		CaptureLocation: req.CaptureLocation,
		ScheduledFor:    req.ScheduledFor,
	}

	if source == models.ContentSourceWeb && req.URL != "" {
		if err := s.extractFromURL(ctx, item); err != nil {
			RecordCapture(source, "error")
			return nil, err
		}
		item.Status = models.ContentStatusProcessed
	}

	if item.Title == "" && item.OriginalContent != "" {
		item.Title = firstLine(item.OriginalContent, 80)
	}
	if item.Summary == "" && item.OriginalContent != "" {
		item.Summary = truncate(item.OriginalContent, captureSummaryMax)
	}

	if err := s.repo.Create(ctx, item); err != nil {
		RecordCapture(source, "error")
		return nil, err
	}

	RecordCapture(source, "success")
	if s.analytics != nil {
		s.analytics.Record(userID, models.EventContentCaptured, map[string]interface{}{
			"source":     source,
			"content_id": item.ID.Hex(),
		})
	}

	log.Printf("✅ [CAPTURE] Stored %s capture %s for user %s", source, item.ID.Hex(), userID)
	return item, nil
}

// extractFromURL fetches the page and fills title, summary, and content from
// the extracted article.
func (s *CaptureService) extractFromURL(ctx context.Context, item *models.ContentItem) error {
	if err := validateCaptureURL(item.URL); err != nil {
		return err
	}

	parsedURL, err := url.Parse(item.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	allowed, crawlDelay, err := s.robots.CanFetch(ctx, item.URL)
	if err != nil {
		log.Printf("⚠️  [CAPTURE] robots.txt check failed for %s: %v", item.URL, err)
		crawlDelay = time.Second
	}
	if !allowed {
		return fmt.Errorf("capture blocked by robots.txt: %s", item.URL)
	}

	if err := s.limiter.Wait(ctx, parsedURL.Host, crawlDelay); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build capture request: %w", err)
	}
	req.Header.Set("User-Agent", captureUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error %d fetching %s", resp.StatusCode, item.URL)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") &&
		!strings.Contains(contentType, "text/plain") &&
		!strings.Contains(contentType, "application/xhtml+xml") {
		return fmt.Errorf("unsupported content type: %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, captureMaxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL: parsedURL,
	})
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}
	if result == nil || result.ContentText == "" {
		return fmt.Errorf("no readable content extracted from %s", item.URL)
	}

	item.OriginalContent = result.ContentText
	if item.Title == "" {
		item.Title = result.Metadata.Title
	}
	if result.Metadata.Description != "" {
		item.Summary = truncate(result.Metadata.Description, captureSummaryMax)
	}

	return nil
}

// validateCaptureURL blocks non-HTTP schemes and private/internal hosts.
func validateCaptureURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("only HTTP/HTTPS URLs can be captured, got %q", parsedURL.Scheme)
	}

	hostname := strings.ToLower(parsedURL.Hostname())
	if hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1" {
		return fmt.Errorf("localhost URLs are not allowed")
	}

	if ip := net.ParseIP(hostname); ip != nil {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			return fmt.Errorf("private IP addresses are not allowed")
		}
	}

	return nil
}

func firstLine(text string, max int) string {
	line := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		line = text[:idx]
	}
	return truncate(strings.TrimSpace(line), max)
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
