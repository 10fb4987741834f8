package httputils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

type rateLimitedTransport struct {
	limiter ratelimit.Limiter
	base    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.limiter.Take()
	return t.base.RoundTrip(req)
}

type leveledLogger struct {
	log *logrus.Entry
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.WithField("args", keysAndValues).Error(msg)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithField("args", keysAndValues).Debug(msg)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.WithField("args", keysAndValues).Trace(msg)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.WithField("args", keysAndValues).Warn(msg)
}

// NewRetryableHttpClient returns a client that retries transient failures and
// honors the given rate limiter for every request, including retries.
func NewRetryableHttpClient(timeout time.Duration, rl ratelimit.Limiter, log *logrus.Entry) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = &leveledLogger{log: log}

	client := retryClient.StandardClient()
	client.Transport = &rateLimitedTransport{
		limiter: rl,
		base:    client.Transport,
	}

	return client
}

// URLWithQuery joins a base URL with query values.
func URLWithQuery(base string, q url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// MakeAPIRequest performs a request and decodes the JSON response into out.
func MakeAPIRequest(ctx context.Context, client *http.Client, method string, requestURL string, body io.Reader, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
