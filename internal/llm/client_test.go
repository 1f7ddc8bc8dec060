package llm

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/modalyze/modalyze/internal/auth"
	"github.com/modalyze/modalyze/internal/auth/google"
	"github.com/modalyze/modalyze/internal/config"
)

func newTestClient(t *testing.T, mutate func(*config.Config)) *Client {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.AuthDir = t.TempDir()
	cfg.RetryAttempts = 1
	if mutate != nil {
		mutate(cfg)
	}

	creds, err := auth.NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	return New(cfg, creds)
}

func seedOAuthToken(t *testing.T, c *Client, accessToken string) {
	t.Helper()

	rec := &google.TokenRecord{
		AccessToken: accessToken,
		ExpiresAt:   time.Now().Add(time.Hour).Format(time.RFC3339),
	}
	if err := c.creds.Flow().Store().Save(rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func writeTestPNG(t *testing.T, dir string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: uint8(40 * x), B: uint8(40 * y), A: 255})
		}
	}
	path := filepath.Join(dir, "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeBytes(t *testing.T, path string, content []byte) string {
	t.Helper()
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// capture records one request a fake provider endpoint received.
type capture struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

// fakeProvider serves a canned JSON response and sends every request it
// handles to the returned channel.
func fakeProvider(t *testing.T, response string) (*httptest.Server, chan capture) {
	t.Helper()

	reqs := make(chan capture, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}
		reqs <- capture{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   body,
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(response)); err != nil {
			t.Errorf("writing response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server, reqs
}

func TestAnalyzeImageOpenAI(t *testing.T) {
	t.Parallel()

	server, reqs := fakeProvider(t, `{"choices":[{"message":{"content":"a red square"}}]}`)

	c := newTestClient(t, func(cfg *config.Config) { cfg.OpenAIAPIKey = "sk-test" })
	c.openaiBase = server.URL
	img := writeTestPNG(t, t.TempDir())

	got, err := c.AnalyzeImage(context.Background(), "gpt-4o", img, "Describe this.", 42)
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if got != "a red square" {
		t.Errorf("AnalyzeImage() = %q, want %q", got, "a red square")
	}

	req := <-reqs
	if req.method != http.MethodPost || req.path != "/v1/chat/completions" {
		t.Errorf("request = %s %s, want POST /v1/chat/completions", req.method, req.path)
	}
	if authz := req.header.Get("Authorization"); authz != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want %q", authz, "Bearer sk-test")
	}
	if ct := req.header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	body := gjson.ParseBytes(req.body)
	if model := body.Get("model").String(); model != "gpt-4o" {
		t.Errorf("model = %q, want %q", model, "gpt-4o")
	}
	if role := body.Get("messages.0.role").String(); role != "system" {
		t.Errorf("messages.0.role = %q, want system", role)
	}
	text := body.Get("messages.1.content.0.text").String()
	if want := "Describe this. Please provide approximately 42 words in your description."; text != want {
		t.Errorf("user text = %q, want %q", text, want)
	}
	url := body.Get("messages.1.content.1.image_url.url").String()
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("image url = %.40q, want data:image/jpeg;base64 prefix", url)
	}
	if temp := body.Get("temperature"); !temp.Exists() || temp.Float() != 0 {
		t.Errorf("temperature = %v, want 0", temp)
	}
}

func TestAnalyzeImageGeminiAPIKey(t *testing.T) {
	t.Parallel()

	server, reqs := fakeProvider(t, `{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"world"}]}}]}`)

	c := newTestClient(t, func(cfg *config.Config) { cfg.GeminiAPIKey = "AIza-test" })
	c.geminiBase = server.URL
	img := writeTestPNG(t, t.TempDir())

	got, err := c.AnalyzeImage(context.Background(), "gemini/gemini-2.5-flash", img, "Describe.", 10)
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if got != "hello world" {
		t.Errorf("AnalyzeImage() = %q, want %q", got, "hello world")
	}

	req := <-reqs
	if want := "/v1beta/models/gemini-2.5-flash:generateContent"; req.path != want {
		t.Errorf("path = %q, want %q", req.path, want)
	}
	if key := req.header.Get("x-goog-api-key"); key != "AIza-test" {
		t.Errorf("x-goog-api-key = %q, want %q", key, "AIza-test")
	}
	if authz := req.header.Get("Authorization"); authz != "" {
		t.Errorf("Authorization = %q, want empty", authz)
	}

	body := gjson.ParseBytes(req.body)
	if mime := body.Get("contents.0.parts.1.inline_data.mime_type").String(); mime != "image/jpeg" {
		t.Errorf("inline_data.mime_type = %q, want image/jpeg", mime)
	}
	if data := body.Get("contents.0.parts.1.inline_data.data").String(); data == "" {
		t.Error("inline_data.data is empty")
	}
	if sys := body.Get("system_instruction.parts.0.text").String(); sys == "" {
		t.Error("system_instruction is empty")
	}
	if temp := body.Get("generationConfig.temperature"); !temp.Exists() || temp.Float() != 0 {
		t.Errorf("generationConfig.temperature = %v, want 0", temp)
	}
}

func TestAnalyzeImageGeminiOAuthBearer(t *testing.T) {
	t.Parallel()

	server, reqs := fakeProvider(t, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)

	c := newTestClient(t, nil)
	c.geminiBase = server.URL
	seedOAuthToken(t, c, "ya29-test")
	img := writeTestPNG(t, t.TempDir())

	if _, err := c.AnalyzeImage(context.Background(), "gemini-2.5-flash", img, "Describe.", 10); err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}

	req := <-reqs
	if authz := req.header.Get("Authorization"); authz != "Bearer ya29-test" {
		t.Errorf("Authorization = %q, want %q", authz, "Bearer ya29-test")
	}
	if key := req.header.Get("x-goog-api-key"); key != "" {
		t.Errorf("x-goog-api-key = %q, want empty", key)
	}
}

func TestAnalyzeImageAnthropic(t *testing.T) {
	t.Parallel()

	server, reqs := fakeProvider(t, `{"content":[{"type":"text","text":"claude answer"}]}`)

	c := newTestClient(t, func(cfg *config.Config) { cfg.AnthropicAPIKey = "sk-ant-test" })
	c.anthropicBase = server.URL
	img := writeTestPNG(t, t.TempDir())

	got, err := c.AnalyzeImage(context.Background(), "claude-sonnet-4-0", img, "Describe.", 25)
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if got != "claude answer" {
		t.Errorf("AnalyzeImage() = %q, want %q", got, "claude answer")
	}

	req := <-reqs
	if req.path != "/v1/messages" {
		t.Errorf("path = %q, want /v1/messages", req.path)
	}
	if key := req.header.Get("x-api-key"); key != "sk-ant-test" {
		t.Errorf("x-api-key = %q, want %q", key, "sk-ant-test")
	}
	if ver := req.header.Get("anthropic-version"); ver != "2023-06-01" {
		t.Errorf("anthropic-version = %q, want 2023-06-01", ver)
	}

	body := gjson.ParseBytes(req.body)
	if maxTok := body.Get("max_tokens").Int(); maxTok != 4096 {
		t.Errorf("max_tokens = %d, want 4096", maxTok)
	}
	if st := body.Get("messages.0.content.1.source.type").String(); st != "base64" {
		t.Errorf("source.type = %q, want base64", st)
	}
	if mt := body.Get("messages.0.content.1.source.media_type").String(); mt != "image/jpeg" {
		t.Errorf("source.media_type = %q, want image/jpeg", mt)
	}
}

func TestAnalyzeImageAzure(t *testing.T) {
	t.Parallel()

	server, reqs := fakeProvider(t, `{"choices":[{"message":{"content":"azure answer"}}]}`)

	c := newTestClient(t, func(cfg *config.Config) {
		cfg.AzureOpenAIKey = "az-key"
		cfg.AzureOpenAIEndpoint = "https://example.openai.azure.com"
	})
	c.azureBase = server.URL
	img := writeTestPNG(t, t.TempDir())

	got, err := c.AnalyzeImage(context.Background(), "azure/gpt4o-deploy", img, "Describe.", 10)
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if got != "azure answer" {
		t.Errorf("AnalyzeImage() = %q, want %q", got, "azure answer")
	}

	req := <-reqs
	if want := "/openai/deployments/gpt4o-deploy/chat/completions"; req.path != want {
		t.Errorf("path = %q, want %q", req.path, want)
	}
	if want := "api-version=2024-02-15-preview"; req.query != want {
		t.Errorf("query = %q, want %q", req.query, want)
	}
	if key := req.header.Get("api-key"); key != "az-key" {
		t.Errorf("api-key header = %q, want %q", key, "az-key")
	}
	if model := gjson.ParseBytes(req.body).Get("model"); model.Exists() {
		t.Errorf("model field = %q, want absent (deployment is in the URL)", model.String())
	}
}

func TestAnalyzeImageCleansUpPreprocessedFile(t *testing.T) {
	t.Parallel()

	server, _ := fakeProvider(t, `{"choices":[{"message":{"content":"ok"}}]}`)

	c := newTestClient(t, func(cfg *config.Config) { cfg.OpenAIAPIKey = "sk-test" })
	c.openaiBase = server.URL

	dir := t.TempDir()
	img := writeLargePNG(t, filepath.Join(dir, "noise.png"))

	if _, err := c.AnalyzeImage(context.Background(), "gpt-4o", img, "Describe.", 10); err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "noise.png" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory after analysis = %v, want only noise.png", names)
	}
}

// writeLargePNG writes an incompressible PNG above the preprocessing
// threshold so AnalyzeImage takes the convert-to-JPEG path.
func writeLargePNG(t *testing.T, path string) string {
	t.Helper()

	rng := rand.New(rand.NewSource(7))
	img := image.NewRGBA(image.Rect(0, 0, 600, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 600; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() <= 500*1024 {
		t.Fatalf("fixture PNG is %d bytes, expected it to exceed the 500KB threshold", info.Size())
	}
	return path
}

func TestAnalyzeImageInvalidFile(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(cfg *config.Config) { cfg.OpenAIAPIKey = "sk-test" })

	_, err := c.AnalyzeImage(context.Background(), "gpt-4o", filepath.Join(t.TempDir(), "gone.png"), "x", 10)
	if err == nil {
		t.Fatal("AnalyzeImage() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "invalid image") {
		t.Errorf("AnalyzeImage() error = %q, want invalid image", err)
	}
}

func TestAnalyzeImageUnrecognizedFamily(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, nil)
	img := writeTestPNG(t, t.TempDir())

	_, err := c.AnalyzeImage(context.Background(), "llama-3-70b", img, "x", 10)
	if err == nil {
		t.Fatal("AnalyzeImage() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "unrecognized model family") {
		t.Errorf("AnalyzeImage() error = %q, want unrecognized model family", err)
	}
}

func TestAnalyzeAudio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		mode     string
		prompt   string
		wantText string
		wantMIME string
	}{
		{
			name:     "transcript ignores prompt",
			file:     "a.mp3",
			mode:     ModeTranscript,
			prompt:   "ignored",
			wantText: "Please transcribe this audio file and return only the transcript text.",
			wantMIME: "audio/mpeg",
		},
		{
			name:     "description with prompt",
			file:     "b.flac",
			mode:     ModeDescription,
			prompt:   "What music is this?",
			wantText: "What music is this?\n\nPlease analyze this audio content. Provide approximately 50 words in your analysis.",
			wantMIME: "audio/flac",
		},
		{
			name:     "description without prompt",
			file:     "c.wav",
			mode:     ModeDescription,
			wantText: "Please analyze and describe the content of this audio file. Provide approximately 50 words in your analysis.",
			wantMIME: "audio/wav",
		},
		{
			name:     "video container goes out with video type",
			file:     "d.mp4",
			mode:     ModeTranscript,
			wantText: "Please transcribe this audio file and return only the transcript text.",
			wantMIME: "video/mp4",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server, reqs := fakeProvider(t, `{"candidates":[{"content":{"parts":[{"text":"transcribed"}]}}]}`)

			c := newTestClient(t, func(cfg *config.Config) { cfg.GeminiAPIKey = "AIza-test" })
			c.geminiBase = server.URL
			path := writeBytes(t, filepath.Join(t.TempDir(), tt.file), []byte("fake media payload"))

			got, err := c.AnalyzeAudio(context.Background(), "gemini-2.5-flash", path, tt.mode, tt.prompt, 50)
			if err != nil {
				t.Fatalf("AnalyzeAudio() error = %v", err)
			}
			if got != "transcribed" {
				t.Errorf("AnalyzeAudio() = %q, want %q", got, "transcribed")
			}

			req := <-reqs
			body := gjson.ParseBytes(req.body)
			if text := body.Get("contents.0.parts.0.text").String(); text != tt.wantText {
				t.Errorf("prompt text = %q, want %q", text, tt.wantText)
			}
			if mime := body.Get("contents.0.parts.1.inline_data.mime_type").String(); mime != tt.wantMIME {
				t.Errorf("mime_type = %q, want %q", mime, tt.wantMIME)
			}
		})
	}
}

func TestAnalyzeAudioRejections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mp3 := writeBytes(t, filepath.Join(dir, "a.mp3"), []byte("x"))
	wma := writeBytes(t, filepath.Join(dir, "a.wma"), []byte("x"))

	tests := []struct {
		name    string
		model   string
		path    string
		mode    string
		wantErr string
	}{
		{name: "non gemini model", model: "gpt-4o", path: mp3, mode: ModeTranscript, wantErr: "only supports Gemini models"},
		{name: "google routing prefix is not accepted", model: "google/gemini-2.5-flash", path: mp3, mode: ModeTranscript, wantErr: "only supports Gemini models"},
		{name: "invalid mode", model: "gemini-2.5-flash", path: mp3, mode: "summary", wantErr: "invalid mode"},
		{name: "unsendable format", model: "gemini-2.5-flash", path: wma, mode: ModeTranscript, wantErr: "invalid audio file"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(cfg *config.Config) { cfg.GeminiAPIKey = "AIza-test" })
			_, err := c.AnalyzeAudio(context.Background(), tt.model, tt.path, tt.mode, "", 50)
			if err == nil {
				t.Fatal("AnalyzeAudio() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("AnalyzeAudio() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestAnalyzeVideo(t *testing.T) {
	t.Parallel()

	server, reqs := fakeProvider(t, `{"candidates":[{"content":{"parts":[{"text":"a short clip"}]}}]}`)

	c := newTestClient(t, func(cfg *config.Config) { cfg.GeminiAPIKey = "AIza-test" })
	c.geminiBase = server.URL
	path := writeBytes(t, filepath.Join(t.TempDir(), "clip.mov"), []byte("fake video"))

	got, err := c.AnalyzeVideo(context.Background(), "gemini-2.5-flash", path, ModeDescription, "Focus on motion.", 80)
	if err != nil {
		t.Fatalf("AnalyzeVideo() error = %v", err)
	}
	if got != "a short clip" {
		t.Errorf("AnalyzeVideo() = %q, want %q", got, "a short clip")
	}

	req := <-reqs
	body := gjson.ParseBytes(req.body)
	wantText := "Focus on motion.\n\nPlease analyze this video content including both visual and audio elements. Provide approximately 80 words in your analysis."
	if text := body.Get("contents.0.parts.0.text").String(); text != wantText {
		t.Errorf("prompt text = %q, want %q", text, wantText)
	}
	if mime := body.Get("contents.0.parts.1.inline_data.mime_type").String(); mime != "video/quicktime" {
		t.Errorf("mime_type = %q, want video/quicktime", mime)
	}
}

func TestAnalyzeVideoRejections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mp4 := writeBytes(t, filepath.Join(dir, "clip.mp4"), []byte("x"))

	tests := []struct {
		name    string
		model   string
		mode    string
		wantErr string
	}{
		{name: "non gemini model", model: "claude-sonnet-4-0", mode: ModeDescription, wantErr: "only supports Gemini models"},
		{name: "transcript mode", model: "gemini-2.5-flash", mode: ModeTranscript, wantErr: "only supports 'description' mode"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(cfg *config.Config) { cfg.GeminiAPIKey = "AIza-test" })
			_, err := c.AnalyzeVideo(context.Background(), tt.model, mp4, tt.mode, "", 50)
			if err == nil {
				t.Fatal("AnalyzeVideo() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("AnalyzeVideo() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestAzureEndpointRequired(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(cfg *config.Config) { cfg.AzureOpenAIKey = "az-key" })
	img := writeTestPNG(t, t.TempDir())

	_, err := c.AnalyzeImage(context.Background(), "azure/dep", img, "x", 10)
	if err == nil {
		t.Fatal("AnalyzeImage() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "azure endpoint is not configured") {
		t.Errorf("AnalyzeImage() error = %q, want azure endpoint message", err)
	}
}

func TestExtractContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		family  string
		data    string
		want    string
		wantErr string
	}{
		{
			name:   "gemini multi part concatenation",
			family: "gemini",
			data:   `{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}]}`,
			want:   "ab",
		},
		{
			name:    "gemini block reason",
			family:  "gemini",
			data:    `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantErr: "blocked by provider: SAFETY",
		},
		{
			name:    "gemini empty candidates",
			family:  "gemini",
			data:    `{"candidates":[]}`,
			wantErr: "no content",
		},
		{
			name:   "anthropic skips non text blocks",
			family: "anthropic",
			data:   `{"content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"answer"}]}`,
			want:   "answer",
		},
		{
			name:   "openai plain content",
			family: "openai",
			data:   `{"choices":[{"message":{"content":"done"}}]}`,
			want:   "done",
		},
		{
			name:    "openai missing content",
			family:  "openai",
			data:    `{"choices":[]}`,
			wantErr: "no content",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := extractContent(tt.family, []byte(tt.data))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("extractContent() error = nil, want substring %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("extractContent() error = %q, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractContent() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("extractContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProviderModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "gpt-4o", want: "gpt-4o"},
		{in: "openai/gpt-4o", want: "gpt-4o"},
		{in: "azure/gpt4o-deploy", want: "gpt4o-deploy"},
		{in: "anthropic/claude-sonnet-4-0", want: "claude-sonnet-4-0"},
		{in: "gemini/gemini-2.5-flash", want: "gemini-2.5-flash"},
		{in: "google/gemini-2.5-pro", want: "gemini-2.5-pro"},
		{in: "claude-haiku-4-5", want: "claude-haiku-4-5"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := providerModel(tt.in); got != tt.want {
				t.Errorf("providerModel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
