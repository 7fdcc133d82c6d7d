package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"carmatch/internal/config"
	"carmatch/internal/utils"
)

// OpenAIClient handles OpenAI-compatible API interactions
type OpenAIClient struct {
	config     *config.OpenAIConfig
	httpClient *http.Client
	log        *zap.Logger

	chatExtra      map[string]any
	embeddingExtra map[string]any
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(cfg *config.OpenAIConfig, log *zap.Logger) *OpenAIClient {
	c := &OpenAIClient{
		config: cfg,
		log:    log.Named("openai"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
	c.chatExtra = c.parseExtraBody("OPENAI_CHAT_EXTRA_BODY", cfg.ChatExtraBody)
	c.embeddingExtra = c.parseExtraBody("OPENAI_EMBEDDING_EXTRA_BODY", cfg.EmbeddingExtraBody)
	return c
}

func (c *OpenAIClient) parseExtraBody(name, raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		c.log.Warn("ignoring malformed extra body", zap.String("env", name), zap.Error(err))
		return nil
	}
	return extra
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	ExtraBody      map[string]any  `json:"extra_body,omitempty"`
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the format of the response
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingRequest represents an embedding request
type EmbeddingRequest struct {
	Model          string         `json:"model"`
	Input          []string       `json:"input"`
	Dimensions     int            `json:"dimensions,omitempty"`
	EncodingFormat string         `json:"encoding_format,omitempty"`
	ExtraBody      map[string]any `json:"extra_body,omitempty"`
}

// EmbeddingResponse represents the embedding API response
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if !c.config.Enabled {
		return nil, ErrAIDisabled
	}

	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.TopP == 0 && c.config.ChatTopP > 0 {
		req.TopP = c.config.ChatTopP
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}
	if req.ExtraBody == nil {
		req.ExtraBody = c.chatExtra
	}

	var result ChatCompletionResponse
	if err := c.post(ctx, "/chat/completions", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// complete runs a single system+user exchange and returns the trimmed reply.
func (c *OpenAIClient) complete(ctx context.Context, system, user string, temperature float64, maxTokens int, jsonMode bool) (string, error) {
	req := ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if jsonMode {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrUnusableOutput)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrUnusableOutput)
	}
	return content, nil
}

// CreateEmbeddings creates embeddings for the given texts
func (c *OpenAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.config.Enabled {
		return nil, ErrAIDisabled
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	batchSize := c.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	for i := 0; i < len(texts); i += batchSize {
		end := min(i+batchSize, len(texts))
		embeddings, err := c.createEmbeddingBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings for batch %d: %w", i/batchSize, err)
		}
		allEmbeddings = append(allEmbeddings, embeddings...)

		// Rate limiting: small delay between batches
		if end < len(texts) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}

	return allEmbeddings, nil
}

// createEmbeddingBatch creates embeddings for a single batch
func (c *OpenAIClient) createEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := EmbeddingRequest{
		Model:          c.config.EmbeddingModel,
		Input:          texts,
		Dimensions:     c.config.EmbeddingDimensions,
		EncodingFormat: "float",
		ExtraBody:      c.embeddingExtra,
	}

	var result EmbeddingResponse
	if err := c.post(ctx, "/embeddings", req, &result); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index >= 0 && item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, fmt.Errorf("%w: missing embedding for input %d", ErrUnusableOutput, i)
		}
	}

	c.log.Debug("created embeddings",
		zap.Int("count", len(embeddings)),
		zap.String("model", result.Model),
		zap.Int("tokens", result.Usage.TotalTokens))
	return embeddings, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, payload, out any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.APIBase, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, utils.Truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// Embed returns the vector for one query text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) Outcome[[]float32] {
	vecs, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return Failure[[]float32](err)
	}
	return Success(vecs[0])
}

const slotExtractionPrompt = `คุณเป็นตัวแยกข้อมูลความต้องการซื้อรถยนต์ ตอบเป็น JSON object เท่านั้น ห้ามมีคำอธิบายอื่น
คีย์ที่รองรับ:
- price_min, price_max: จำนวนเต็มบาท ("ไม่เกิน 1 ล้าน" = price_min 0, price_max 1000000)
- make: ยี่ห้อรถเป็นภาษาอังกฤษตัวพิมพ์เล็ก เช่น toyota, honda
- series: รุ่น เช่น yaris, civic
- usage_text: ลักษณะการใช้งานตามคำของผู้ใช้ เช่น "เดินทางไกล", "ในเมือง"
- transmission: "AT" หรือ "MT"
- fuel: "petrol", "diesel", "hybrid" หรือ "ev"
- drivetrain: "FWD", "RWD" หรือ "4WD/AWD"
- body: "sedan", "suv", "mpv", "hatchback" หรือ "pickup"
ถ้าไม่พบให้ละคีย์นั้น

ตัวอย่าง:
ผู้ใช้: "ไม่เกิน 1 ล้าน ขอดู nissan ไว้ขับต่างจังหวัด"
คำตอบ: {"price_min": 0, "price_max": 1000000, "make": "nissan", "usage_text": "ขับต่างจังหวัด"}`

// ExtractSlots uses the chat model to parse free text into slot values
func (c *OpenAIClient) ExtractSlots(ctx context.Context, text string) Outcome[*AISlotResponse] {
	content, err := c.complete(ctx, slotExtractionPrompt, text, 0.2, 200, true)
	if err != nil {
		return Failure[*AISlotResponse](err)
	}

	var result AISlotResponse
	if err := utils.ParseModelJSON(content, &result); err != nil {
		c.log.Debug("unparsable slot extraction", zap.String("content", utils.Truncate(content, 200)))
		return Failure[*AISlotResponse](fmt.Errorf("%w: %v", ErrUnusableOutput, err))
	}
	if err := validateSlotResponse(&result); err != nil {
		return Failure[*AISlotResponse](fmt.Errorf("%w: %v", ErrUnusableOutput, err))
	}
	return Success(&result)
}

// validateSlotResponse validates the model reply using business rules
func validateSlotResponse(resp *AISlotResponse) error {
	if resp.PriceMin != nil && *resp.PriceMin < 0 {
		return fmt.Errorf("price_min (%f) cannot be negative", *resp.PriceMin)
	}
	if resp.PriceMin != nil && resp.PriceMax != nil && *resp.PriceMin > *resp.PriceMax {
		return fmt.Errorf("price_min (%f) cannot be greater than price_max (%f)", *resp.PriceMin, *resp.PriceMax)
	}

	enums := []struct {
		field string
		value *string
		valid []string
	}{
		{"transmission", &resp.Transmission, []string{"AT", "MT"}},
		{"fuel", &resp.Fuel, []string{"petrol", "diesel", "hybrid", "ev"}},
		{"drivetrain", &resp.Drivetrain, []string{"FWD", "RWD", "4WD/AWD"}},
		{"body", &resp.Body, []string{"sedan", "suv", "mpv", "hatchback", "pickup"}},
	}
	for _, e := range enums {
		if *e.value == "" {
			continue
		}
		matched := false
		for _, v := range e.valid {
			if strings.EqualFold(*e.value, v) {
				*e.value = v
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("invalid %s: %s, must be one of: %s", e.field, *e.value, strings.Join(e.valid, ", "))
		}
	}
	resp.Make = strings.ToLower(strings.TrimSpace(resp.Make))
	resp.Series = strings.ToLower(strings.TrimSpace(resp.Series))
	return nil
}
