package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shinyyama/quickfix-backend/internal/reqctx"
	"google.golang.org/genai"
)

const (
	DefaultModel     = "gemini-2.5-flash"
	maxImageBytes    = 8 << 20
	maxBeforeImages  = 3
	diagTemperature  = 0.4
	diagOutputTokens = 2048
)

var ErrEmptyResponse = errors.New("empty model response")

// GeminiClient serves both the diagnosis and the completion check.
type GeminiClient struct {
	client     *genai.Client
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration, httpClient *http.Client) (*GeminiClient, error) {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model, timeout: timeout, httpClient: httpClient}, nil
}

// GenerateDiagnosis returns the raw diagnosis text for prompt.
func (c *GeminiClient) GenerateDiagnosis(ctx context.Context, prompt string) (string, error) {
	rid := reqctx.RID(ctx)
	reqID := reqctx.RequestID(ctx)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}
	temp := float32(diagTemperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: diagOutputTokens,
	}
	start := time.Now()
	log.Printf("[diag] rid=%s req=%s stage=gemini_start model=%s", rid, reqID, c.model)
	res, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		log.Printf("[diag] rid=%s req=%s stage=gemini_fail model=%s err=%v", rid, reqID, c.model, err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(res.Text())
	log.Printf("[diag] rid=%s req=%s stage=gemini_done len=%d genMs=%d", rid, reqID, len(text), time.Since(start).Milliseconds())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

type VerificationInput struct {
	BeforeImageURLs []string
	AfterImageURL   string
	Note            string
}

// CompareCompletion asks the vision model whether the after photo shows the
// item repaired. Images are downloaded and sent inline.
func (c *GeminiClient) CompareCompletion(ctx context.Context, in VerificationInput) (*VerificationVerdict, error) {
	rid := reqctx.RID(ctx)
	reqID := reqctx.RequestID(ctx)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	before := in.BeforeImageURLs
	if len(before) > maxBeforeImages {
		before = before[:maxBeforeImages]
	}
	parts := []*genai.Part{genai.NewPartFromText(BuildVerificationPrompt(in.Note, len(before)))}
	images := 0
	for i, u := range before {
		data, mime, err := c.fetchImage(ctx, u)
		if err != nil {
			// a missing before photo weakens the check but does not block it
			log.Printf("[verify] rid=%s req=%s stage=fetch_before_fail idx=%d err=%v", rid, reqID, i, err)
			continue
		}
		parts = append(parts, genai.NewPartFromText(fmt.Sprintf("Before photo %d:", i+1)), genai.NewPartFromBytes(data, mime))
		images++
	}
	after, mime, err := c.fetchImage(ctx, in.AfterImageURL)
	if err != nil {
		log.Printf("[verify] rid=%s req=%s stage=fetch_after_fail err=%v", rid, reqID, err)
		return nil, fmt.Errorf("fetch completion image: %w", err)
	}
	parts = append(parts, genai.NewPartFromText("After photo:"), genai.NewPartFromBytes(after, mime))
	images++

	temp := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
	}
	start := time.Now()
	log.Printf("[verify] rid=%s req=%s stage=gemini_start model=%s images=%d", rid, reqID, c.model, images)
	res, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		log.Printf("[verify] rid=%s req=%s stage=gemini_fail err=%v", rid, reqID, err)
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	raw := res.Text()
	log.Printf("[verify] rid=%s req=%s stage=gemini_done len=%d genMs=%d", rid, reqID, len(raw), time.Since(start).Milliseconds())
	return ParseVerification(raw)
}

func (c *GeminiClient) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	if imageURL == "" {
		return nil, "", errors.New("image url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}
