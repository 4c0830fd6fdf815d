// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bgg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorse-io/meeple/base/log"
	"github.com/gorse-io/meeple/common/parallel"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://boardgamegeek.com"
	DefaultBatchSize = 20
)

var rateLimitExceeded = []byte("Rate limit exceeded")

// Options configures a Client.
type Options struct {
	BaseURL         string
	HTTPClient      *http.Client
	RequestsPerMin  int           // non-positive means unlimited
	MaxTries        uint          // zero means retry until MaxElapsedTime
	InitialInterval time.Duration // first backoff interval
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	BatchSize       int // ids per thing request
	Logger          *zap.Logger
}

// Client fetches pages from BoardGameGeek. Every request waits for the rate limiter and
// is retried with exponential backoff while the site is throttling or failing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    parallel.RateLimiter
	options    Options
	logger     *zap.Logger
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: time.Minute}
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = time.Minute
	}
	if opts.MaxElapsedTime <= 0 {
		opts.MaxElapsedTime = 15 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    parallel.NewRateLimiter(opts.RequestsPerMin),
		options:    opts,
		logger:     log.OrNop(opts.Logger),
	}
}

// URL returns the absolute URL of a site path.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// get fetches path with query and returns the response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.URL(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.options.InitialInterval
	b.MaxInterval = c.options.MaxInterval
	b.Multiplier = 2
	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(c.options.MaxElapsedTime),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.logger.Debug("retry request", zap.String("url", u), zap.Duration("backoff", d), zap.Error(err))
		}),
	}
	if c.options.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(c.options.MaxTries))
	}
	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.do(ctx, u)
	}, opts...)
	if err != nil {
		return nil, errors.Annotatef(err, "get %s", u)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, u string) ([]byte, error) {
	if err := parallel.Wait(ctx, c.limiter); err != nil {
		return nil, backoff.Permanent(err)
	}
	c.logger.Debug("making request", zap.String("url", u))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(errors.Trace(err))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, errors.Trace(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
			return nil, backoff.RetryAfter(seconds)
		}
		return nil, errors.New("too many requests")
	case resp.StatusCode == http.StatusAccepted:
		// the xml api queues the request and answers 202 until the result is ready
		return nil, errors.New("request queued")
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, errors.Errorf("server error %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(errors.Errorf("unexpected status %d", resp.StatusCode))
	case bytes.Contains(body, rateLimitExceeded):
		return nil, errors.New("rate limit exceeded")
	}
	return body, nil
}

func pageQuery(values url.Values, page int) url.Values {
	q := url.Values{}
	for k, v := range values {
		q[k] = v
	}
	q.Set("page", fmt.Sprint(page))
	return q
}
