package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash"

	routeGenerateContent = "/v1beta/models/%s:generateContent"
)

// GeminiClient клиент Gemini generateContent API.
type GeminiClient struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

func NewGeminiClient(baseURL, model, apiKey string, timeout time.Duration) GeminiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return GeminiClient{
		baseURL:    baseURL,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate отправляет prompt модели и возвращает текст первого кандидата. В случае ошибки возвращает или
// StatusCodeError или не типизированную ошибку.
//
//nolint:nonamedreturns
func (c GeminiClient) Generate(ctx context.Context, prompt string) (text string, err error) {
	// Формируем URL запроса.
	reqURL := c.baseURL + fmt.Sprintf(routeGenerateContent, c.model) + "?key=" + url.QueryEscape(c.apiKey)

	payload, marshalErr := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      0.7,  //nolint:mnd
			TopK:             40,   //nolint:mnd
			TopP:             0.95, //nolint:mnd
			MaxOutputTokens:  1024, //nolint:mnd
			ResponseMimeType: "application/json",
		},
	})
	if marshalErr != nil {
		return "", fmt.Errorf("encode request: %s", marshalErr.Error())
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if reqErr != nil {
		return "", fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		// в ошибке url с ключом, его не логируем.
		var urlErr *url.Error
		if errors.As(doErr, &urlErr) {
			doErr = urlErr.Err
		}
		return "", fmt.Errorf("do request: %s", doErr.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", NewStatusCodeError(resp.StatusCode)
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", fmt.Errorf("read response: %s", readErr.Error())
	}

	var response generateResponse
	if jsonErr := json.Unmarshal(body, &response); jsonErr != nil {
		return "", fmt.Errorf("parse response: %s", jsonErr.Error())
	}

	text = response.text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
