package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Scrape queues source pages for crawling and PDF ingestion. The whole batch
// goes out in a single request.
func (c *Client) Scrape(ctx context.Context, urls []string) (ScrapeReply, error) {
	cleaned, err := NormalizeURLs(urls)
	if err != nil {
		return ScrapeReply{}, err
	}

	var reply ScrapeReply
	if err := c.postJSON(ctx, "scrape", "/scrape", scrapeRequest{URLs: cleaned}, &reply); err != nil {
		return ScrapeReply{}, err
	}
	return reply, nil
}

// NormalizeURLs trims entries, drops blanks and rejects anything that is not
// an absolute http(s) URL.
func NormalizeURLs(urls []string) ([]string, error) {
	var cleaned []string
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("not a valid http(s) URL: %q", raw)
		}
		cleaned = append(cleaned, raw)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("at least one URL is required")
	}
	return cleaned, nil
}
