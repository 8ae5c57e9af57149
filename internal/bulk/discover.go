package bulk

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// filePattern matches the bulk files the loader understands.
var filePattern = regexp.MustCompile(`^oe\.(area|areatype|datatype|footnote|industry|occupation|release|seasonal|sector|series|data\.[0-9A-Za-z_.]+)$`)

// IsBulkFile reports whether name is a loadable bulk file name.
func IsBulkFile(name string) bool {
	return filePattern.MatchString(name)
}

// Discover scrapes the directory index at baseURL and returns the bulk file
// names it links to, sorted and deduplicated.
func Discover(ctx context.Context, baseURL, userAgent string, timeout time.Duration, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	index, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("discover: parse base url: %w", err)
	}
	if index.Path == "" || index.Path[len(index.Path)-1] != '/' {
		index.Path += "/"
	}

	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.MaxDepth(1),
	)
	if timeout > 0 {
		collector.SetRequestTimeout(timeout)
	}

	seen := make(map[string]struct{})
	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link, err := url.Parse(e.Attr("href"))
		if err != nil {
			return
		}
		name := path.Base(e.Request.URL.ResolveReference(link).Path)
		if IsBulkFile(name) {
			seen[name] = struct{}{}
		}
	})
	var visitErr error
	collector.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("discover: %s: status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if err := collector.Visit(index.String()); err != nil && visitErr == nil {
		visitErr = fmt.Errorf("discover: visit %s: %w", index, err)
	}
	if visitErr != nil {
		return nil, visitErr
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	logger.Info("discovered bulk files", zap.String("index", index.String()), zap.Int("files", len(names)))
	return names, nil
}
