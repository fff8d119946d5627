package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/notifyhub/request-queue/internal/domain"
	"github.com/notifyhub/request-queue/internal/provider"
)

func TestWebhookProvider_Send(t *testing.T) {
	var got provider.SendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Tag") != domain.TagIdentify {
			t.Errorf("missing tag header, got %q", r.Header.Get("X-Request-Tag"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"messageId":"m-1","status":"accepted"}`))
	}))
	defer srv.Close()

	p := provider.NewWebhookProvider(srv.URL, time.Second)
	item := domain.NewItem(domain.TagIdentify, json.RawMessage(`{"user":"u-1"}`))

	resp, err := p.Send(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.MessageID != "m-1" {
		t.Fatalf("expected m-1, got %q", resp.MessageID)
	}
	if got.ID != item.ID || string(got.Payload) != `{"user":"u-1"}` {
		t.Fatalf("unexpected request body %+v", got)
	}
}

func TestWebhookProvider_EmptyBodyIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := provider.NewWebhookProvider(srv.URL, time.Second)
	if _, err := p.Send(context.Background(), domain.NewItem(domain.TagLogout, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWebhookProvider_ErrorClasses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized needs session", http.StatusUnauthorized, domain.ErrSessionRequired},
		{"bad request is permanent", http.StatusBadRequest, domain.ErrPermanent},
		{"too many requests is transient", http.StatusTooManyRequests, nil},
		{"server error is transient", http.StatusBadGateway, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			p := provider.NewWebhookProvider(srv.URL, time.Second)
			_, err := p.Send(context.Background(), domain.NewItem(domain.TagIdentify, nil))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want == nil && (errors.Is(err, domain.ErrPermanent) || errors.Is(err, domain.ErrSessionRequired)) {
				t.Fatalf("expected a transient error, got %v", err)
			}
		})
	}
}
