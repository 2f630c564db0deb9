package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"realms-server/internal/config"
	"realms-server/internal/models"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realms_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "kind", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realms_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "kind"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realms_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realms_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"model"},
	)
)

// GenerationParams carries optional sampling parameters. Pointers
// distinguish "not set" from an explicit zero.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
	JSONMode    bool
}

// UsageInfo reports token usage for a single generation.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIClient is the narrative backend. Text generation is used for story
// turns, session summaries and the lore chat; image generation renders
// scene illustrations.
type AIClient interface {
	// GenerateText sends a system prompt and user input and returns the
	// model's raw text along with token usage.
	GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error)
	// GenerateImage renders the prompt and returns a data URL suitable
	// for direct embedding in a story segment.
	GenerateImage(ctx context.Context, userID string, prompt string) (string, error)
}

// NewAIClient builds an AI client from the configuration.
func NewAIClient(cfg *config.Config, logger *zap.Logger) (AIClient, error) {
	switch strings.ToLower(cfg.AIClientType) {
	case "openai":
		openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
		openaiConfig.BaseURL = cfg.AIBaseURL
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.AITimeout}
		client := openaigo.NewClientWithConfig(openaiConfig)
		logger.Info("OpenAI client created",
			zap.String("baseURL", cfg.AIBaseURL),
			zap.String("model", cfg.AIModel),
			zap.String("imageModel", cfg.AIImageModel),
			zap.Duration("timeout", cfg.AITimeout))
		return &openAIClient{
			client:     client,
			model:      cfg.AIModel,
			imageModel: cfg.AIImageModel,
			timeout:    cfg.AITimeout,
			logger:     logger.Named("OpenAIClient"),
		}, nil
	case "ollama":
		return newOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown AI client type: '%s'", cfg.AIClientType)
	}
}

// --- OpenAI implementation ---

type openAIClient struct {
	client     *openaigo.Client
	model      string
	imageModel string
	timeout    time.Duration
	logger     *zap.Logger
}

var _ AIClient = (*openAIClient)(nil)

func (c *openAIClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usage := UsageInfo{}

	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "kind": "text", "status": "error"}).Inc()
		return "", usage, fmt.Errorf("%w: empty system prompt", models.ErrGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleUser,
			Content: userInput,
		})
	}

	req := openaigo.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32Val(params.Temperature),
		MaxTokens:   intVal(params.MaxTokens),
		TopP:        float32Val(params.TopP),
	}
	if params.JSONMode {
		req.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("AI text request failed",
			zap.String("userID", userID),
			zap.Duration("duration", duration),
			zap.Error(err))
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "kind": "text", "status": "error"}).Inc()
		return "", usage, fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		c.logger.Warn("AI returned an empty response",
			zap.String("userID", userID),
			zap.Duration("duration", duration))
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "kind": "text", "status": "error_empty"}).Inc()
		return "", usage, fmt.Errorf("%w: empty response", models.ErrGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "kind": "text", "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model, "kind": "text"}).Observe(duration.Seconds())

	generatedText := resp.Choices[0].Message.Content

	if resp.Usage.TotalTokens > 0 {
		usage.PromptTokens = resp.Usage.PromptTokens
		usage.CompletionTokens = resp.Usage.CompletionTokens
		usage.TotalTokens = resp.Usage.TotalTokens
	} else {
		// Some OpenAI-compatible backends omit the usage block.
		usage = estimateUsage(c.model, systemPrompt, userInput, generatedText)
	}
	observeTokens(c.model, usage)

	c.logger.Debug("AI text response received",
		zap.String("userID", userID),
		zap.Duration("duration", duration),
		zap.Int("totalTokens", usage.TotalTokens))

	return generatedText, usage, nil
}

func (c *openAIClient) GenerateImage(ctx context.Context, userID string, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := c.client.CreateImage(ctx, openaigo.ImageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           openaigo.CreateImageSize1024x1024,
		ResponseFormat: openaigo.CreateImageResponseFormatB64JSON,
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("AI image request failed",
			zap.String("userID", userID),
			zap.Duration("duration", duration),
			zap.Error(err))
		aiRequestsTotal.With(prometheus.Labels{"model": c.imageModel, "kind": "image", "status": "error"}).Inc()
		return "", fmt.Errorf("%w: %v", models.ErrImageGeneration, err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.imageModel, "kind": "image", "status": "error_empty"}).Inc()
		return "", fmt.Errorf("%w: empty image response", models.ErrImageGeneration)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.imageModel, "kind": "image", "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.imageModel, "kind": "image"}).Observe(duration.Seconds())

	return "data:image/png;base64," + resp.Data[0].B64JSON, nil
}

// --- Ollama implementation ---

type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

var _ AIClient = (*ollamaClient)(nil)

func newOllamaClient(cfg *config.Config, logger *zap.Logger) (AIClient, error) {
	httpClient := &http.Client{Timeout: cfg.AITimeout}

	// api.NewClient wants the URL without the /v1 suffix.
	ollamaBaseURL := strings.TrimSuffix(cfg.AIBaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL '%s': %w", ollamaBaseURL, err)
	}

	logger.Info("Ollama client created",
		zap.String("baseURL", ollamaBaseURL),
		zap.String("model", cfg.AIModel),
		zap.Duration("timeout", cfg.AITimeout))

	return &ollamaClient{
		client:  api.NewClient(parsedURL, httpClient),
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
		logger:  logger.Named("OllamaClient"),
	}, nil
}

func (c *ollamaClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usage := UsageInfo{}

	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "kind": "text", "status": "error"}).Inc()
		return "", usage, fmt.Errorf("%w: empty system prompt", models.ErrGenerationFailed)
	}

	messages := []api.Message{
		{Role: "system", Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	options := map[string]interface{}{}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		options["num_predict"] = *params.MaxTokens
	}

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(false),
		Options:  options,
	}
	if params.JSONMode {
		req.Format = []byte(`"json"`)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Ollama request failed",
			zap.String("userID", userID),
			zap.Duration("duration", duration),
			zap.Error(err))
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "kind": "text", "status": "error"}).Inc()
		return "", usage, fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}

	if resp.Message.Content == "" {
		c.logger.Warn("Ollama returned an empty response",
			zap.String("userID", userID),
			zap.Duration("duration", duration))
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "kind": "text", "status": "error_empty"}).Inc()
		return "", usage, fmt.Errorf("%w: empty response", models.ErrGenerationFailed)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "kind": "text", "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model, "kind": "text"}).Observe(duration.Seconds())

	usage.PromptTokens = resp.PromptEvalCount
	usage.CompletionTokens = resp.EvalCount
	usage.TotalTokens = resp.PromptEvalCount + resp.EvalCount
	observeTokens(c.model, usage)

	return resp.Message.Content, usage, nil
}

// GenerateImage is not supported by Ollama. Turns still succeed as
// text-only segments, so returning an error here is safe.
func (c *ollamaClient) GenerateImage(ctx context.Context, userID string, prompt string) (string, error) {
	return "", fmt.Errorf("%w: image generation is not supported by the ollama backend", models.ErrImageGeneration)
}

// --- helpers ---

func observeTokens(model string, usage UsageInfo) {
	if usage.TotalTokens <= 0 {
		return
	}
	aiPromptTokens.With(prometheus.Labels{"model": model}).Observe(float64(usage.PromptTokens))
	aiCompletionTokens.With(prometheus.Labels{"model": model}).Observe(float64(usage.CompletionTokens))
}

// estimateUsage approximates token counts with tiktoken when the API
// does not report them.
func estimateUsage(model, systemPrompt, userInput, response string) UsageInfo {
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return UsageInfo{}
		}
	}
	prompt := len(tke.Encode(systemPrompt, nil, nil)) + len(tke.Encode(userInput, nil, nil))
	completion := len(tke.Encode(response, nil, nil))
	return UsageInfo{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

func float32Val(f64 *float64) float32 {
	if f64 == nil {
		return 1.0
	}
	return float32(*f64)
}

func intVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
