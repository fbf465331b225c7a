package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"

	"nori/backends"
)

const maxPageBytes = 4 << 20

// fetchPost downloads a post page and renders its readable content as
// markdown.
func fetchPost(ctx context.Context, t backends.Transport, pageURL, userAgent string, timeout time.Duration) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid page URL: %s", pageURL)
	}
	if userAgent == "" {
		userAgent = backends.UserAgent
	}

	resp, err := t.Do(ctx, backends.Request{
		URL:             pageURL,
		UserAgent:       userAgent,
		Timeout:         timeout,
		FollowRedirects: true,
		Cacheable:       true,
	})
	if err != nil {
		return "", fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, pageURL)
	}

	return renderPost(io.LimitReader(resp.Body, maxPageBytes), u)
}

func renderPost(r io.Reader, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(r, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract page content: %v", err)
	}

	converter := md.NewConverter(pageURL.Host, true, nil)
	body, err := converter.ConvertString(article.Content)
	if err != nil {
		return "", fmt.Errorf("failed to convert page to markdown: %v", err)
	}

	var b strings.Builder
	if article.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(article.Title))
	}
	if article.Byline != "" {
		fmt.Fprintf(&b, "_%s_\n\n", strings.TrimSpace(article.Byline))
	}
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return b.String(), nil
}
