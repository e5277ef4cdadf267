package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
)

func chatServer(t *testing.T, content string, status int, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if capture != nil && len(req.Messages) == 2 {
			*capture = req.Messages[1].Content
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 50, "completion_tokens": 20, "total_tokens": 70},
		})
	}))
}

func testResults(t *testing.T) []recommendation.Result {
	t.Helper()
	java, err := catalog.New("java-8", "Java 8 (New)", "https://example.com/java-8",
		"Multi-choice test of Java knowledge", catalog.KnowledgeSkills, catalog.Attributes{Duration: "18 minutes"})
	if err != nil {
		t.Fatal(err)
	}
	opq, err := catalog.New("opq32r", "OPQ32r", "https://example.com/opq32r",
		"Occupational personality questionnaire", catalog.PersonalityBehavior, catalog.Attributes{})
	if err != nil {
		t.Fatal(err)
	}
	return []recommendation.Result{{Item: java, Rank: 1}, {Item: opq, Rank: 2}}
}

func TestExplainer_Explain(t *testing.T) {
	var prompt string
	srv := chatServer(t, "1. Covers core Java skills.\n2. Measures teamwork preferences.", http.StatusOK, &prompt)
	defer srv.Close()

	exp := NewExplainer(&ExplainerConfig{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	out, err := exp.Explain(context.Background(), query.Canonical{Text: "Java developer who collaborates"}, testResults(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0] != "Covers core Java skills." || out[1] != "Measures teamwork preferences." {
		t.Fatalf("unexpected explanations: %q", out)
	}
	for _, want := range []string{"Java developer who collaborates", "1. Java 8 (New) (Knowledge & Skills), duration 18 minutes", "2. OPQ32r"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestExplainer_MissingItem(t *testing.T) {
	srv := chatServer(t, "1. Only the first one.", http.StatusOK, nil)
	defer srv.Close()

	exp := NewExplainer(&ExplainerConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	_, err := exp.Explain(context.Background(), query.Canonical{Text: "q"}, testResults(t))
	if !errors.Is(err, domain.ErrExplanationProvider) {
		t.Fatalf("expected ErrExplanationProvider, got %v", err)
	}
}

func TestExplainer_APIError(t *testing.T) {
	srv := chatServer(t, "", http.StatusServiceUnavailable, nil)
	defer srv.Close()

	exp := NewExplainer(&ExplainerConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	_, err := exp.Explain(context.Background(), query.Canonical{Text: "q"}, testResults(t))
	if !errors.Is(err, domain.ErrExplanationProvider) {
		t.Fatalf("expected ErrExplanationProvider, got %v", err)
	}
}

func TestExplainer_NoResultsSkipsCall(t *testing.T) {
	exp := NewExplainer(&ExplainerConfig{APIKey: "k", BaseURL: "http://unused", Model: "m"})
	out, err := exp.Explain(context.Background(), query.Canonical{Text: "q"}, nil)
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty, got %q, %v", out, err)
	}
}

func TestParseNumbered(t *testing.T) {
	tests := []struct {
		name    string
		content string
		n       int
		want    []string
		wantErr bool
	}{
		{
			name:    "plain",
			content: "1. a\n2. b",
			n:       2,
			want:    []string{"a", "b"},
		},
		{
			name:    "parens and bold",
			content: "1) **a**\n2) b",
			n:       2,
			want:    []string{"a", "b"},
		},
		{
			name:    "preamble and continuation",
			content: "Here you go:\n\n1. first line\n   continues here\n2. b",
			n:       2,
			want:    []string{"first line continues here", "b"},
		},
		{
			name:    "out of order",
			content: "2. b\n1. a",
			n:       2,
			want:    []string{"a", "b"},
		},
		{
			name:    "out of range number ignored",
			content: "1. a\n7. z",
			n:       1,
			want:    []string{"a 7. z"},
		},
		{
			name:    "gap",
			content: "1. a\n3. c",
			n:       3,
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseNumbered(tc.content, tc.n)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExplainer_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	exp := NewExplainer(&ExplainerConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", Timeout: 20 * time.Millisecond})
	_, err := exp.Explain(context.Background(), query.Canonical{Text: "x"}, testResults(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
