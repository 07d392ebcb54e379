package threads

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// exchangeResult is what a single collector round trip captured.
type exchangeResult struct {
	status int
	body   []byte
}

func (r exchangeResult) ok() bool {
	return r.status >= http.StatusOK && r.status < http.StatusMultipleChoices
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

func newBaseCollector(cfg Config) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.timeout())
	return c
}

// exchange runs send on a fresh clone of the base collector and waits for the
// response or for ctx to end, whichever comes first. target is only used for
// pacing.
func (c *Client) exchange(
	ctx context.Context,
	target string,
	send func(*colly.Collector) error,
) (exchangeResult, error) {
	if c.cfg.Throttle != nil {
		if err := c.cfg.Throttle.Wait(ctx, target); err != nil {
			return exchangeResult{}, fmt.Errorf("threads request throttled: %w", err)
		}
	}

	collector := c.base.Clone()
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true

	var (
		result   exchangeResult
		fetchErr error
	)
	configureHooks(collector, &result, &fetchErr)

	done := make(chan error, 1)
	go func() {
		done <- send(collector)
	}()

	select {
	case <-ctx.Done():
		return exchangeResult{}, fmt.Errorf("threads request canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return exchangeResult{}, fmt.Errorf("threads request failed: %w", err)
		}
		if fetchErr != nil {
			return exchangeResult{}, fmt.Errorf("threads response failed: %w", fetchErr)
		}
		return result, nil
	}
}

func configureHooks(hooks collectorHooks, result *exchangeResult, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*result = exchangeResult{
			status: r.StatusCode,
			body:   append([]byte(nil), r.Body...),
		}
	})
	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
