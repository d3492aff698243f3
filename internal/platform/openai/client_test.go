package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

func TestNewClientWithoutKeyIsNil(t *testing.T) {
	log, _ := logger.New("test")
	c, err := NewClient(log, Config{})
	if err != nil || c != nil {
		t.Fatalf("want (nil,nil) got (%v,%v)", c, err)
	}
}

func TestGenerateTitleRetriesServerErrors(t *testing.T) {
	var calls int32
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"busy","type":"server_error"}}`))
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel, _ = body["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Lisbon Trip Planning \n"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	log, _ := logger.New("test")
	c, err := NewClient(log, Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", TitleModel: "title-model", MaxRetries: 1})
	if err != nil || c == nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := c.GenerateTitle(context.Background(), "help me plan a trip to lisbon", "Sure!")
	if err != nil {
		t.Fatalf("GenerateTitle: %v", err)
	}
	if got != "Lisbon Trip Planning" {
		t.Fatalf("title: want=%q got=%q", "Lisbon Trip Planning", got)
	}
	if gotModel != "title-model" {
		t.Fatalf("model: want=title-model got=%q", gotModel)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls: want=2 got=%d", calls)
	}
}
