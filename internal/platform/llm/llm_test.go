package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/syncraft-backend/internal/pkg/httpx"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TESTING", "LLM_PROVIDER", "LLM_MODEL", "LLM_BASE_URL", "LLM_MAX_TOKENS", "LLM_TIMEOUT",
		"OPENROUTER_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestMockGenerator(t *testing.T) {
	out, err := Mock{}.Generate(context.Background(), "What is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "This is a test answer for: What is 2+2?", out)
}

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantProv  string
		wantModel string
		wantKey   string
	}{
		{
			name:      "no keys falls back to mock",
			env:       map[string]string{},
			wantProv:  ProviderMock,
			wantModel: "mock",
		},
		{
			name:      "openrouter key wins by default",
			env:       map[string]string{"OPENROUTER_API_KEY": "or-key", "OPENAI_API_KEY": "oa-key"},
			wantProv:  ProviderOpenRouter,
			wantModel: "anthropic/claude-3.7-sonnet",
			wantKey:   "or-key",
		},
		{
			name:      "explicit provider",
			env:       map[string]string{"LLM_PROVIDER": "Anthropic", "ANTHROPIC_API_KEY": "an-key", "OPENROUTER_API_KEY": "or-key"},
			wantProv:  ProviderAnthropic,
			wantModel: "claude-3-7-sonnet-latest",
			wantKey:   "an-key",
		},
		{
			name:      "testing forces mock",
			env:       map[string]string{"TESTING": "true", "OPENAI_API_KEY": "oa-key"},
			wantProv:  ProviderMock,
			wantModel: "mock",
		},
		{
			name:      "model override",
			env:       map[string]string{"GEMINI_API_KEY": "g-key", "LLM_MODEL": "gemini-2.5-pro"},
			wantProv:  ProviderGemini,
			wantModel: "gemini-2.5-pro",
			wantKey:   "g-key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearProviderEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := ConfigFromEnv(nil)
			assert.Equal(t, tt.wantProv, cfg.Provider)
			assert.Equal(t, tt.wantModel, cfg.Model)
			assert.Equal(t, tt.wantKey, cfg.APIKey)
			assert.Equal(t, DefaultTemperature, cfg.Temperature)
			assert.Equal(t, DefaultMaxTokens, cfg.MaxTokens)
		})
	}
}

func TestConfigDefaultsOpenRouterBaseURL(t *testing.T) {
	cfg := Config{Provider: ProviderOpenRouter, APIKey: "k"}.withDefaults()
	assert.Equal(t, OpenRouterBaseURL, cfg.BaseURL)

	cfg = Config{Provider: ProviderOpenAI, APIKey: "k"}.withDefaults()
	assert.Empty(t, cfg.BaseURL)
}

func TestNewRejectsMissingKeyAndUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: ProviderOpenAI}, nil)
	assert.Error(t, err)

	_, err = New(Config{Provider: "watsonx", APIKey: "k"}, nil)
	assert.Error(t, err)

	g, err := New(Config{Provider: ProviderMock}, nil)
	require.NoError(t, err)
	out, err := g.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "This is a test answer for: hi", out)
}

func TestOpenAIBuildParams(t *testing.T) {
	o := NewOpenAI(Config{Provider: ProviderOpenRouter, APIKey: "k"})
	p := o.buildParams("prompt")
	assert.Equal(t, openai.ChatModel("anthropic/claude-3.7-sonnet"), p.Model)
	assert.Equal(t, openai.Float(0.7), p.Temperature)
	assert.Equal(t, openai.Int(1024), p.MaxTokens)
	require.Len(t, p.Messages, 1)
}

func TestOpenAIGenerateAgainstServer(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Paris.  "}}]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(Config{Provider: ProviderOpenAI, APIKey: "test-key", Model: "m", BaseURL: srv.URL + "/"},
		openaioption.WithMaxRetries(0))
	out, err := o.Generate(context.Background(), "Capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", out)
	assert.Equal(t, "m", gotBody["model"])
	assert.EqualValues(t, 1024, gotBody["max_tokens"])
}

func TestOpenAIGenerateEmptyChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(Config{Provider: ProviderOpenAI, APIKey: "k", Model: "m", BaseURL: srv.URL + "/"},
		openaioption.WithMaxRetries(0))
	_, err := o.Generate(context.Background(), "q")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestAnthropicGenerateAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"m",
			"content":[{"type":"text","text":"Hello"},{"type":"text","text":" there"}],
			"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":2}}`)
	}))
	defer srv.Close()

	a := NewAnthropic(Config{Provider: ProviderAnthropic, APIKey: "test-key", Model: "m", BaseURL: srv.URL + "/"},
		anthropicoption.WithMaxRetries(0))
	p := a.buildParams("hi")
	assert.EqualValues(t, 1024, p.MaxTokens)

	out, err := a.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out)
}

func TestInstrumentPassesThroughAndTimesOut(t *testing.T) {
	boom := errors.New("boom")
	g := Instrument(GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		if prompt == "fail" {
			return "", boom
		}
		if prompt == "slow" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok:" + prompt, nil
	}), Config{Provider: "fake", Model: "fake-1", Timeout: 50 * time.Millisecond}, nil)

	out, err := g.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok:x", out)

	_, err = g.Generate(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)

	_, err = g.Generate(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInstrumentRetriesTransientErrors(t *testing.T) {
	calls := 0
	g := Instrument(GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "", httpx.WithStatus(503, errors.New("overloaded"))
		}
		return "done", nil
	}), Config{Provider: "fake", Model: "fake-1", Timeout: 5 * time.Second, MaxRetries: 2}, nil)

	out, err := g.Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 2, calls)

	calls = 0
	g = Instrument(GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", httpx.WithStatus(401, errors.New("bad key"))
	}), Config{Provider: "fake", Model: "fake-1", MaxRetries: 2}, nil)
	_, err = g.Generate(context.Background(), "q")
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "client errors are not retried")
}
