package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvidersValidates(t *testing.T) {
	_, err := NewProviders(testLogger(), ProviderConfig{Name: "x", Kind: "carrier-pigeon"})
	require.Error(t, err)

	_, err = NewProviders(testLogger(), ProviderConfig{Name: "x"}, ProviderConfig{Name: "x"})
	require.Error(t, err)
}

func TestProvidersConfigs(t *testing.T) {
	p, err := NewProviders(testLogger(),
		ProviderConfig{Name: "openai", APIKeyEnv: "OPENAI_API_KEY", Models: []string{"gpt-4o"}},
		ProviderConfig{Name: "local", Kind: KindOllama},
	)
	require.NoError(t, err)

	assert.True(t, p.Has("openai"))
	assert.False(t, p.Has("anthropic"))

	configs := p.Configs()
	require.Len(t, configs, 2)
	assert.Equal(t, "local", configs[0].Name)
	assert.Equal(t, KindOpenAI, configs[1].Kind)

	_, err = p.Get(context.Background(), "anthropic")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

// chatServer speaks enough of the chat-completions API for one request.
func chatServer(t *testing.T, reply string, bodies chan<- map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   body["model"],
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider(t *testing.T) {
	bodies := make(chan map[string]any, 2)
	srv := chatServer(t, "<Action>Cooperate</Action>", bodies)

	p, err := NewProviders(testLogger(), ProviderConfig{
		Name:      "compat",
		APIKeyEnv: "COMPAT_KEY",
		BaseURL:   srv.URL + "/v1/",
	})
	require.NoError(t, err)
	p.getenv = func(key string) string {
		assert.Equal(t, "COMPAT_KEY", key)
		return "test-key"
	}

	c := NewClient(p, testLogger())

	text, err := c.Send(context.Background(), Request{Prompt: "hello", Provider: "compat", Model: "gpt-4o", Policy: Policy{}})
	require.NoError(t, err)
	assert.Equal(t, "<Action>Cooperate</Action>", text)

	body := <-bodies
	assert.Equal(t, "gpt-4o", body["model"])
	assert.InDelta(t, 0.6, body["temperature"], 1e-9)
	assert.EqualValues(t, 1500, body["max_tokens"])
	assert.NotContains(t, body, "max_completion_tokens")
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])

	_, err = c.Send(context.Background(), Request{Prompt: "hello", Provider: "compat", Model: "o3-mini"})
	require.NoError(t, err)

	body = <-bodies
	assert.EqualValues(t, 2500, body["max_completion_tokens"])
	assert.NotContains(t, body, "temperature")
	assert.NotContains(t, body, "max_tokens")
}

func TestProvidersBuildOnce(t *testing.T) {
	p, err := NewProviders(testLogger(), ProviderConfig{Name: "local", Kind: KindOllama, BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	clients := make([]Provider, 10)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i], _ = p.Get(context.Background(), "local")
		}(i)
	}
	wg.Wait()

	for _, c := range clients {
		require.NotNil(t, c)
		assert.Same(t, clients[0], c)
	}
}

func TestGeminiRequiresKey(t *testing.T) {
	p, err := NewProviders(testLogger(), ProviderConfig{Name: "gemini", Kind: KindGemini, APIKeyEnv: "GEMINI_API_KEY"})
	require.NoError(t, err)
	p.getenv = func(string) string { return "" }

	_, err = p.Get(context.Background(), "gemini")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownProvider)
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o1"))
	assert.True(t, isReasoningModel("o3-mini"))
	assert.False(t, isReasoningModel("gpt-4o"))
	assert.False(t, isReasoningModel("deepseek-chat"))
}
