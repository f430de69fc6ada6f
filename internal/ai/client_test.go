package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

// verifyChatRequest decodes and checks the structure of a chat completion request.
func verifyChatRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	if r.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", r.Method)
	}
	if ct := r.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		t.Errorf("failed to decode request: %v", err)
		return nil
	}

	messages, ok := raw["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Errorf("messages = %v, want 2 entries", raw["messages"])
		return raw
	}
	if role := messages[0].(map[string]any)["role"]; role != "system" {
		t.Errorf("first message role = %v, want system", role)
	}
	if role := messages[1].(map[string]any)["role"]; role != "user" {
		t.Errorf("second message role = %v, want user", role)
	}
	return raw
}

func chatResponseJSON(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":    "chatcmpl-1",
		"model": "local-model",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
	})
	return string(body)
}

// splitServerURL returns the endpoint and port of a test server for ComposeURL
func splitServerURL(t *testing.T, serverURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return u.Scheme + "://" + u.Hostname(), port
}

func TestComposeURL(t *testing.T) {
	tests := []struct {
		endpoint string
		port     int
		path     string
		want     string
	}{
		{"http://localhost", 1234, "/v1/chat/completions", "http://localhost:1234/v1/chat/completions"},
		{"http://localhost/", 1234, "//v1", "http://localhost/:1234//v1"},
		{"localhost", 8080, "/api", "localhost:8080/api"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ComposeURL(tt.endpoint, tt.port, tt.path); got != tt.want {
				t.Errorf("ComposeURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildRequestPayload(t *testing.T) {
	payload, err := BuildRequestPayload("sys", "user text", "m", 0, 2000)
	if err != nil {
		t.Fatalf("BuildRequestPayload() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}

	if raw["model"] != "m" {
		t.Errorf("model = %v, want m", raw["model"])
	}
	if temp, ok := raw["temperature"]; !ok || temp != float64(0) {
		t.Errorf("temperature = %v (present %v), want 0 present", temp, ok)
	}
	if raw["max_tokens"] != float64(2000) {
		t.Errorf("max_tokens = %v, want 2000", raw["max_tokens"])
	}

	messages := raw["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(messages))
	}
	first := messages[0].(map[string]any)
	second := messages[1].(map[string]any)
	if first["role"] != "system" || first["content"] != "sys" {
		t.Errorf("system message = %v", first)
	}
	if second["role"] != "user" || second["content"] != "user text" {
		t.Errorf("user message = %v", second)
	}
}

func TestClient_SendRequest(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    error
	}{
		{"success", http.StatusOK, chatResponseJSON("ok"), nil},
		{"created is 2xx", http.StatusCreated, chatResponseJSON("ok"), nil},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, ErrRequestFailed},
		{"not found", http.StatusNotFound, "no such route", ErrRequestFailed},
		{"invalid json", http.StatusOK, "not json", ErrInvalidResponse},
		{"null body", http.StatusOK, "null", ErrInvalidResponse},
		{"null body with whitespace", http.StatusOK, " null\n", ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				verifyChatRequest(t, r)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			payload, _ := BuildRequestPayload("s", "u", "m", 0.5, 100)
			resp, err := NewClient(nil).SendRequest(context.Background(), server.URL, payload, 5)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("SendRequest() error = %v, want %v", err, tt.wantErr)
				}
				if resp != nil {
					t.Errorf("SendRequest() response = %+v, want nil", resp)
				}
				return
			}
			if err != nil {
				t.Fatalf("SendRequest() error = %v", err)
			}
			if content, ok := resp.Content(); !ok || content != "ok" {
				t.Errorf("Content() = %q, %v", content, ok)
			}
		})
	}
}

func TestClient_SendRequestUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := NewClient(nil).SendRequest(context.Background(), addr, []byte(`{}`), 2)
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("SendRequest() error = %v, want ErrRequestFailed", err)
	}
}

func TestClient_SendRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(nil).SendRequest(context.Background(), server.URL, []byte(`{}`), 1)
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("SendRequest() error = %v, want ErrRequestFailed", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("SendRequest() took %v, want timeout near 1s", elapsed)
	}
}

func TestClient_SendRequestRedactsCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid key sk-abcdefghijklmnopqrstuvwxyz123456"))
	}))
	defer server.Close()

	_, err := NewClient(nil).SendRequest(context.Background(), server.URL, []byte(`{}`), 5)
	if err == nil {
		t.Fatal("SendRequest() error = nil, want failure")
	}
	if strings.Contains(err.Error(), "sk-abcdefghijklmnopqrstuvwxyz123456") {
		t.Errorf("error leaks credential: %v", err)
	}
}

func TestClient_TestConnection(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		got = verifyChatRequest(t, r)
		_, _ = w.Write([]byte(chatResponseJSON("anything at all")))
	}))
	defer server.Close()

	endpoint, port := splitServerURL(t, server.URL)
	err := NewClient(nil).TestConnection(context.Background(), endpoint, port, "/v1/chat/completions", "ping-model", 0)
	if err != nil {
		t.Fatalf("TestConnection() error = %v", err)
	}

	if got["model"] != "ping-model" {
		t.Errorf("model = %v, want ping-model", got["model"])
	}
	if got["temperature"] != 0.1 {
		t.Errorf("temperature = %v, want 0.1", got["temperature"])
	}
	if got["max_tokens"] != float64(10) {
		t.Errorf("max_tokens = %v, want 10", got["max_tokens"])
	}
	user := got["messages"].([]any)[1].(map[string]any)
	if user["content"] != "Respond with OK" {
		t.Errorf("ping message = %v", user["content"])
	}
}

func TestClient_TestConnectionNullBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("null"))
	}))
	defer server.Close()

	endpoint, port := splitServerURL(t, server.URL)
	err := NewClient(nil).TestConnection(context.Background(), endpoint, port, "", "m", 2)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("TestConnection() error = %v, want ErrInvalidResponse", err)
	}
}

func TestClient_TestConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	endpoint, port := splitServerURL(t, server.URL)
	err := NewClient(nil).TestConnection(context.Background(), endpoint, port, "/v1/chat/completions", "m", 2)
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("TestConnection() error = %v, want ErrRequestFailed", err)
	}
}

func TestClient_Analyze(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr error
	}{
		{"content returned", http.StatusOK, chatResponseJSON("## Findings\nAll good."), "## Findings\nAll good.", nil},
		{"no choices", http.StatusOK, `{"choices":[]}`, "", ErrInvalidResponse},
		{"missing choices", http.StatusOK, `{"id":"x"}`, "", ErrInvalidResponse},
		{"blank content", http.StatusOK, chatResponseJSON("   \n"), "", ErrEmptyResponse},
		{"server error", http.StatusInternalServerError, `{"error":"model crashed"}`, "", ErrRequestFailed},
		{"invalid json", http.StatusOK, "<html>not json</html>", "", ErrInvalidResponse},
		{"null body", http.StatusOK, "null", "", ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				req = verifyChatRequest(t, r)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			endpoint, port := splitServerURL(t, server.URL)
			got, err := NewClient(nil).Analyze(context.Background(), "ERROR disk full", AnalyzeParams{
				Endpoint:       endpoint,
				Port:           port,
				Path:           "/v1/chat/completions",
				SystemPrompt:   "You are an analyst.",
				Model:          "local-model",
				Temperature:    0.7,
				MaxTokens:      2000,
				TimeoutSeconds: 5,
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Analyze() error = %v, want %v", err, tt.wantErr)
				}
				if got != "" {
					t.Errorf("Analyze() = %q, want empty on failure", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Analyze() = %q, want %q", got, tt.want)
			}

			messages := req["messages"].([]any)
			if sys := messages[0].(map[string]any)["content"]; sys != "You are an analyst." {
				t.Errorf("system prompt = %v", sys)
			}
			user := messages[1].(map[string]any)["content"].(string)
			if !strings.Contains(user, "ERROR disk full") {
				t.Errorf("user message does not contain log content: %q", user)
			}
			if req["temperature"] != 0.7 || req["max_tokens"] != float64(2000) {
				t.Errorf("temperature/max_tokens = %v/%v", req["temperature"], req["max_tokens"])
			}
		})
	}
}

func TestBuildUserMessage(t *testing.T) {
	msg := BuildUserMessage("100% CPU at 10:00")
	if !strings.Contains(msg, "100% CPU at 10:00") {
		t.Errorf("BuildUserMessage() lost content: %q", msg)
	}
	if !strings.HasPrefix(msg, "Please analyze") {
		t.Errorf("BuildUserMessage() missing instructions: %q", msg)
	}
}
