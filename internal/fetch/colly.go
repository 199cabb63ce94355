package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

// Result is the outcome of one successful fetch, by either strategy.
type Result struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
	Strategy   scrape.FetchStrategy
}

// HTTPFetcher performs the fast plain-HTTP attempt via a Colly collector.
type HTTPFetcher struct {
	base   *colly.Collector
	logger *zap.Logger
}

// NewHTTPFetcher constructs a configured Colly-based fetcher.
func NewHTTPFetcher(userAgent string, timeout time.Duration, concurrency int, logger *zap.Logger) (*HTTPFetcher, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(userAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		MaxConnsPerHost:       concurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(timeout)

	return &HTTPFetcher{base: base, logger: logger}, nil
}

// Fetch performs a single GET. Non-2xx responses come back as a typed status
// Error so the engine can decide between retry and browser escalation.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	collector := f.base.Clone()
	resultCh := make(chan httpResult, 1)
	var once sync.Once
	send := func(res httpResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(httpResult{result: Result{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
			Strategy:   scrape.StrategyHTTP,
		}})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			send(httpResult{err: statusError(rawURL, r.StatusCode)})
			return
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(httpResult{err: classify(rawURL, err)})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Result{}, classify(rawURL, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Result{}, classify(rawURL, err)
		}
		return res.result, res.err
	default:
		return Result{}, &Error{URL: rawURL, Cause: CauseConnection, Err: errors.New("no response produced")}
	}
}

type httpResult struct {
	result Result
	err    error
}
