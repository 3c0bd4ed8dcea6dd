package translate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
)

// Translator turns the display fields of a recipe into another language.
type Translator interface {
	Translate(ctx context.Context, src model.Translation, from, to model.Lang) (model.Translation, error)
}

// HTTPTranslator calls the machine translation service.
type HTTPTranslator struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

var _ Translator = (*HTTPTranslator)(nil)

// NewHTTPTranslator returns a client for endpoint. timeout bounds one Translate call,
// retries included.
func NewHTTPTranslator(endpoint string, timeout time.Duration) *HTTPTranslator {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPTranslator{endpoint: endpoint, timeout: timeout, http: &http.Client{}}
}

type translateRequest struct {
	SourceLanguage model.Lang `json:"source_language"`
	TargetLanguage model.Lang `json:"target_language"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Steps          []string   `json:"steps"`
}

// Translate retries transient failures with exponential backoff until the deadline.
// Expiry and exhausted retries are errs.ErrUpstreamUnavailable.
func (c *HTTPTranslator) Translate(ctx context.Context, src model.Translation, from, to model.Lang) (model.Translation, error) {
	body, err := json.Marshal(translateRequest{
		SourceLanguage: from,
		TargetLanguage: to,
		Name:           src.Name,
		Description:    src.Description,
		Steps:          src.Steps,
	})
	if err != nil {
		return model.Translation{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	out, err := backoff.Retry(ctx, func() (model.Translation, error) {
		return c.post(ctx, body)
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(c.timeout))
	if err != nil {
		return model.Translation{}, fmt.Errorf("%w: translate %s->%s: %v", errs.ErrUpstreamUnavailable, from, to, err)
	}
	if out.Name == "" {
		return model.Translation{}, fmt.Errorf("%w: translator returned an empty name", errs.ErrUpstreamUnavailable)
	}
	return out, nil
}

func (c *HTTPTranslator) post(ctx context.Context, body []byte) (model.Translation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Translation{}, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return model.Translation{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			return model.Translation{}, backoff.RetryAfter(secs)
		}
		return model.Translation{}, fmt.Errorf("translator status %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Translation{}, fmt.Errorf("translator status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Translation{}, backoff.Permanent(fmt.Errorf("translator status %d", resp.StatusCode))
	}

	var out model.Translation
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return model.Translation{}, backoff.Permanent(fmt.Errorf("decode translation: %w", err))
	}
	return out, nil
}
