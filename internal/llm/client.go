// Package llm sends encoded media to the configured model provider and
// returns the completion text. It speaks the Gemini, OpenAI, Azure OpenAI,
// and Anthropic wire formats directly, retries transient failures, and
// transparently decompresses responses.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/modalyze/modalyze/internal/auth"
	"github.com/modalyze/modalyze/internal/buildinfo"
	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/constant"
	"github.com/modalyze/modalyze/internal/media"
	"github.com/modalyze/modalyze/internal/util"
)

const (
	openaiEndpoint    = "https://api.openai.com"
	anthropicEndpoint = "https://api.anthropic.com"

	// glEndpoint is the base URL for the Google Generative Language API.
	glEndpoint = "https://generativelanguage.googleapis.com"

	// glAPIVersion is the API version used for Gemini requests.
	glAPIVersion = "v1beta"

	// anthropicVersion pins the Anthropic Messages API revision.
	anthropicVersion = "2023-06-01"
)

// Client dispatches analysis requests to whichever provider a model name
// routes to.
type Client struct {
	cfg        *config.Config
	creds      *auth.Provider
	httpClient *http.Client

	// systemPrompt overrides the embedded system prompts when set.
	systemPrompt string

	// Base URL overrides for tests. Empty means the production endpoints.
	openaiBase    string
	anthropicBase string
	geminiBase    string
	azureBase     string
}

// New builds a client using the configured timeout and proxy settings.
func New(cfg *config.Config, creds *auth.Provider) *Client {
	httpClient := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	return &Client{
		cfg:        cfg,
		creds:      creds,
		httpClient: util.SetProxy(cfg, httpClient),
	}
}

// SetSystemPrompt replaces the embedded system prompts for every request
// issued by this client.
func (c *Client) SetSystemPrompt(prompt string) { c.systemPrompt = prompt }

// AnalyzeImage describes a single image and returns the completion text.
// Any model family may serve image requests.
func (c *Client) AnalyzeImage(ctx context.Context, model, imagePath, prompt string, wordCount int) (string, error) {
	if err := media.ValidateImage(imagePath, c.cfg.MaxFileSizeMB); err != nil {
		return "", fmt.Errorf("invalid image %s: %w", imagePath, err)
	}

	uploadPath, isTemp, err := media.PreprocessImage(imagePath)
	if err != nil {
		return "", err
	}
	if isTemp {
		defer media.CleanupTemp(uploadPath)
	}

	encoded, err := media.EncodeBase64(uploadPath)
	if err != nil {
		return "", err
	}

	systemPrompt := systemPromptFor(media.TypeImage, c.systemPrompt)
	fullPrompt := imageUserPrompt(prompt, wordCount)
	family := auth.FamilyForModel(model)

	var payload []byte
	switch family {
	case constant.Gemini:
		payload = geminiPayload(systemPrompt, fullPrompt, media.ImageMIME, encoded)
	case constant.OpenAI:
		payload = openaiChatPayload(providerModel(model), systemPrompt, fullPrompt, media.DataURL(media.ImageMIME, encoded))
	case constant.Azure:
		payload = openaiChatPayload("", systemPrompt, fullPrompt, media.DataURL(media.ImageMIME, encoded))
	case constant.Anthropic:
		payload = anthropicImagePayload(providerModel(model), systemPrompt, fullPrompt, encoded)
	default:
		return "", fmt.Errorf("unrecognized model family for %s", model)
	}

	logTokenEstimate(model, systemPrompt, fullPrompt)

	data, err := c.send(ctx, family, model, payload)
	if err != nil {
		return "", err
	}
	return extractContent(family, data)
}

// AnalyzeAudio transcribes or describes an audio file. Only Gemini models
// accept inline audio; mode selects between a verbatim transcript and an
// analysis shaped by prompt and wordCount.
func (c *Client) AnalyzeAudio(ctx context.Context, model, audioPath, mode, prompt string, wordCount int) (string, error) {
	if !strings.HasPrefix(model, "gemini") {
		return "", fmt.Errorf("audio analysis only supports Gemini models, received: %s", model)
	}
	fullPrompt, err := audioUserPrompt(mode, prompt, wordCount)
	if err != nil {
		return "", err
	}
	if err := media.ValidateAudio(audioPath, c.cfg.MaxAudioSizeMB); err != nil {
		return "", fmt.Errorf("invalid audio file %s: %w", audioPath, err)
	}

	encoded, err := media.EncodeBase64(audioPath)
	if err != nil {
		return "", err
	}

	systemPrompt := systemPromptFor(media.TypeAudio, c.systemPrompt)
	payload := geminiPayload(systemPrompt, fullPrompt, media.MIMEType(audioPath, media.TypeAudio), encoded)
	logTokenEstimate(model, systemPrompt, fullPrompt)

	data, err := c.send(ctx, constant.Gemini, model, payload)
	if err != nil {
		return "", err
	}
	return extractContent(constant.Gemini, data)
}

// AnalyzeVideo describes a video file. Only Gemini models accept inline
// video, and only description mode is available.
func (c *Client) AnalyzeVideo(ctx context.Context, model, videoPath, mode, prompt string, wordCount int) (string, error) {
	if !strings.HasPrefix(model, "gemini") {
		return "", fmt.Errorf("video analysis only supports Gemini models, received: %s", model)
	}
	if mode != ModeDescription {
		return "", fmt.Errorf("invalid mode %q: video analysis only supports 'description' mode", mode)
	}
	if err := media.ValidateVideo(videoPath, c.cfg.MaxVideoSizeMB); err != nil {
		return "", fmt.Errorf("invalid video file %s: %w", videoPath, err)
	}

	encoded, err := media.EncodeBase64(videoPath)
	if err != nil {
		return "", err
	}

	systemPrompt := systemPromptFor(media.TypeVideo, c.systemPrompt)
	fullPrompt := videoUserPrompt(prompt, wordCount)
	payload := geminiPayload(systemPrompt, fullPrompt, media.MIMEType(videoPath, media.TypeVideo), encoded)
	logTokenEstimate(model, systemPrompt, fullPrompt)

	data, err := c.send(ctx, constant.Gemini, model, payload)
	if err != nil {
		return "", err
	}
	return extractContent(constant.Gemini, data)
}

// send resolves credentials, prepares the provider request, and executes it
// with retries.
func (c *Client) send(ctx context.Context, family, model string, payload []byte) ([]byte, error) {
	cred := c.creds.CredentialForModel(ctx, model)
	pr, err := c.buildRequest(family, model, payload, cred)
	if err != nil {
		return nil, err
	}
	log.Debugf("sending %s request for model %s (%d byte payload)", family, model, len(payload))
	return c.doWithRetry(ctx, pr)
}

// buildRequest assembles the URL and headers for one provider call.
func (c *Client) buildRequest(family, model string, payload []byte, cred auth.Credential) (*providerRequest, error) {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")
	headers.Set("Accept-Encoding", acceptEncodings)
	headers.Set("User-Agent", "modalyze/"+buildinfo.Version)

	var url string
	switch family {
	case constant.OpenAI:
		url = firstNonEmpty(c.openaiBase, openaiEndpoint) + "/v1/chat/completions"
		if cred.Token != "" {
			headers.Set("Authorization", "Bearer "+cred.Token)
		}
	case constant.Azure:
		base := firstNonEmpty(c.azureBase, c.cfg.AzureOpenAIEndpoint)
		if base == "" {
			return nil, fmt.Errorf("azure endpoint is not configured")
		}
		url = fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			strings.TrimRight(base, "/"), providerModel(model), c.cfg.AzureAPIVersion)
		if cred.Token != "" {
			headers.Set("api-key", cred.Token)
		}
	case constant.Anthropic:
		url = firstNonEmpty(c.anthropicBase, anthropicEndpoint) + "/v1/messages"
		headers.Set("anthropic-version", anthropicVersion)
		if cred.Token != "" {
			headers.Set("x-api-key", cred.Token)
		}
	case constant.Gemini:
		base := firstNonEmpty(c.geminiBase, glEndpoint)
		url = fmt.Sprintf("%s/%s/models/%s:generateContent", base, glAPIVersion, providerModel(model))
		switch cred.Method {
		case constant.AuthMethodOAuth:
			headers.Set("Authorization", "Bearer "+cred.Token)
		case constant.AuthMethodAPIKey:
			headers.Set("x-goog-api-key", cred.Token)
		}
	default:
		return nil, fmt.Errorf("unrecognized model family for %s", model)
	}

	return &providerRequest{url: url, headers: headers, body: payload}, nil
}

// extractContent pulls the completion text out of a provider response body.
func extractContent(family string, data []byte) (string, error) {
	switch family {
	case constant.Gemini:
		var sb strings.Builder
		gjson.GetBytes(data, "candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
			sb.WriteString(part.Get("text").String())
			return true
		})
		if sb.Len() == 0 {
			if reason := gjson.GetBytes(data, "promptFeedback.blockReason"); reason.Exists() {
				return "", fmt.Errorf("request blocked by provider: %s", reason.String())
			}
			return "", fmt.Errorf("no content in provider response")
		}
		return sb.String(), nil
	case constant.Anthropic:
		var sb strings.Builder
		gjson.GetBytes(data, "content").ForEach(func(_, block gjson.Result) bool {
			if block.Get("type").String() == "text" {
				sb.WriteString(block.Get("text").String())
			}
			return true
		})
		if sb.Len() == 0 {
			return "", fmt.Errorf("no content in provider response")
		}
		return sb.String(), nil
	default:
		// OpenAI and Azure share the chat completions response shape.
		content := gjson.GetBytes(data, "choices.0.message.content")
		if content.String() == "" {
			return "", fmt.Errorf("no content in provider response")
		}
		return content.String(), nil
	}
}

// providerModel strips the routing prefix from a model identifier, yielding
// the name the provider API expects: "azure/gpt-4o" addresses deployment
// "gpt-4o", "gemini/gemini-2.5-flash" becomes "gemini-2.5-flash", and bare
// names pass through unchanged.
func providerModel(model string) string {
	for _, prefix := range []string{"azure/", "openai/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(model, prefix) {
			return strings.TrimPrefix(model, prefix)
		}
	}
	return model
}

func logTokenEstimate(model, systemPrompt, userPrompt string) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	log.Debugf("estimated prompt tokens for %s: %d", model, EstimateTokens(model, systemPrompt+"\n"+userPrompt))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
