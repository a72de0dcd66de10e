package hfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/ShipSight/internal/integrations/classifier"
	"github.com/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// Client — клиент HuggingFace Inference API для текстовой генерации.
// Без локального состояния: повторный вызов с тем же текстом безопасен.
type Client struct {
	apiURL string
	apiKey string
	httpc  *http.Client
}

func New(apiURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

type inferenceRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type generated struct {
	GeneratedText string `json:"generated_text"`
}

func (c *Client) Paraphrase(ctx context.Context, statusText string) (string, classifier.Outcome, error) {
	prompt := "Rephrase this shipping status update in one short plain sentence: " + statusText

	body, err := json.Marshal(inferenceRequest{
		Inputs: prompt,
		Parameters: map[string]any{
			"max_new_tokens": 60,
			"temperature":    0.3,
		},
	})
	if err != nil {
		return "", classifier.OutcomeError, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", classifier.OutcomeError, errors.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", classifier.OutcomeError, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifier.OutcomeError, errors.Wrap(err, "read response")
	}

	if resp.StatusCode/100 != 2 {
		// Холодный старт модели — повторим в следующем цикле.
		if strings.Contains(string(raw), "currently loading") {
			return "", classifier.OutcomeRetry, nil
		}
		return "", classifier.OutcomeError, fmt.Errorf("inference api http %d", resp.StatusCode)
	}

	var out []generated
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", classifier.OutcomeError, errors.Wrap(err, "decode response")
	}
	if len(out) == 0 || out[0].GeneratedText == "" {
		return "", classifier.OutcomeError, errors.New("empty generation")
	}

	text := strings.TrimSpace(strings.TrimPrefix(out[0].GeneratedText, prompt))
	if text == "" {
		return "", classifier.OutcomeError, errors.New("empty generation after prompt strip")
	}
	return text, classifier.OutcomeOK, nil
}
