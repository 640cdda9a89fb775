package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	apperrors "ecgprep/internal/errors"
)

// ResolveArchiveURL loads the dataset project page and returns the absolute
// URL of the first zip download link on it.
func (d *Downloader) ResolveArchiveURL(ctx context.Context, projectURL string) (string, error) {
	page, err := d.fetchPage(ctx, projectURL)
	if err != nil {
		return "", err
	}

	href, err := findArchiveHref(page)
	if err != nil {
		return "", apperrors.NewNotFoundError("archive link").WithContext("url", projectURL)
	}
	return resolveURL(projectURL, href), nil
}

func findArchiveHref(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", err
	}

	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h, _ := s.Attr("href")
		h = strings.TrimSpace(h)
		if strings.HasSuffix(strings.ToLower(stripQuery(h)), ".zip") {
			href = h
			return false
		}
		return true
	})
	if href == "" {
		return "", fmt.Errorf("no zip link on page")
	}
	return href, nil
}

func (d *Downloader) fetchPage(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("invalid page request", err).WithContext("url", u)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to load project page", err).WithContext("url", u)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("project page returned status %d", resp.StatusCode), nil).
			WithContext("url", u).
			WithContext("status", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func stripQuery(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		return href[:i]
	}
	return href
}

func resolveURL(base, href string) string {
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
