package holidaysync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default feed: Malaysia public holidays published by Google Calendar.
const defaultSourceURL = "https://calendar.google.com/calendar/ical/en.malaysia%23holiday@group.v.calendar.google.com/public/basic.ics"

type holidayClient struct {
	sourceURL string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
	limiter   <-chan time.Time
}

func newHolidayClient() *holidayClient {
	sourceURL := strings.TrimSpace(os.Getenv("HOLIDAY_SOURCE_URL"))
	if sourceURL == "" {
		sourceURL = defaultSourceURL
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("HOLIDAY_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	rateLimitPerMin := int64(10)
	if v := strings.TrimSpace(os.Getenv("HOLIDAY_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &holidayClient{
		sourceURL: sourceURL,
		apiKey:    strings.TrimSpace(os.Getenv("HOLIDAY_API_KEY")),
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   time.Tick(interval),
	}
}

func (c *holidayClient) fetchFeed(ctx context.Context) (string, error) {
	<-c.limiter
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sourceURL, nil)
	if err != nil {
		return "", err
	}
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHdr, c.apiKey)
	}
	req.Header.Set("Accept", "text/calendar, text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("holiday feed error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}
