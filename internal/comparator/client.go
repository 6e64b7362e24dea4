package comparator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pdfcheck/internal"
	"pdfcheck/internal/config"
)

var (
	// ErrService covers transport failures, timeouts and non-2xx answers
	// from the model service.
	ErrService = errors.New("comparator service error")
	// ErrMalformed covers answers the verdict parser cannot interpret.
	// A malformed answer is never coerced into "no discrepancies".
	ErrMalformed = errors.New("comparator response malformed")
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
	log        *logrus.Logger
}

func NewClient(cfg config.Config, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.CompareTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.CompareRateRPS),
		log:        log,
	}
}

// Compare sends the document text and the matched master row to the model
// and parses the answer into a Verdict. The verdict lists only fields the
// model judged semantically different; formatting-only variance is excluded
// by the prompt rules.
func (c *Client) Compare(ctx context.Context, docText string, record internal.MasterRecord) (internal.Verdict, error) {
	rid := uuid.New().String()
	start := time.Now()

	schema := BuildVerdictSchema()
	schemaJSON, _ := json.MarshalIndent(schema, "", "  ")

	body := map[string]any{
		"model":           c.cfg.OpenAIModel,
		"temperature":     c.cfg.OpenAITemperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildUserPrompt(docText, record, c.cfg.MaxPromptChars)},
			{"role": "system", "content": "JSON Schema:\n" + string(schemaJSON)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.OpenAIBaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.WithFields(logrus.Fields{"req_id": rid, "elapsed_ms": time.Since(start).Milliseconds()}).
			WithError(err).Warn("comparator request failed")
		return internal.Verdict{}, fmt.Errorf("%w: %v", ErrService, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return internal.Verdict{}, fmt.Errorf("%w: decode response envelope: %v", ErrMalformed, err)
	}
	if len(cc.Choices) == 0 {
		return internal.Verdict{}, fmt.Errorf("%w: no choices in response", ErrMalformed)
	}

	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))
	if err := ValidateAgainstSchema(schema, content); err != nil {
		c.log.WithFields(logrus.Fields{"req_id": rid, "content": string(content)}).
			WithError(err).Warn("comparator verdict failed schema validation")
		return internal.Verdict{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var verdict internal.Verdict
	if err := json.Unmarshal(content, &verdict); err != nil {
		return internal.Verdict{}, fmt.Errorf("%w: unmarshal verdict: %v", ErrMalformed, err)
	}
	if verdict.Discrepancies == nil {
		verdict.Discrepancies = []internal.Discrepancy{}
	}

	c.log.WithFields(logrus.Fields{
		"req_id":        rid,
		"discrepancies": len(verdict.Discrepancies),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	}).Debug("comparator verdict parsed")
	return verdict, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	attempts := c.cfg.CompareRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < attempts {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(respBody))
		}

		return respBody, nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
