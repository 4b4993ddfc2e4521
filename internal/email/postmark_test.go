package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestSendPurchaseConfirmation(t *testing.T) {
	var got postmarkEmail
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("server-token", "noreply@payview.example", "https://payview.example",
		WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))

	err := c.SendPurchaseConfirmation(context.Background(),
		"buyer@example.com", "Test File", "alice", 1250, "https://payview.example/content/f1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if token != "server-token" {
		t.Errorf("server token header = %q, want server-token", token)
	}
	if got.To != "buyer@example.com" {
		t.Errorf("to = %q, want buyer@example.com", got.To)
	}
	if got.From != "noreply@payview.example" {
		t.Errorf("from = %q, want noreply@payview.example", got.From)
	}
	if !strings.Contains(got.TextBody, "$12.50") {
		t.Errorf("text body %q missing formatted amount", got.TextBody)
	}
	if !strings.Contains(got.HtmlBody, "https://payview.example/content/f1") {
		t.Errorf("html body missing content link")
	}
}

func TestSendSaleNotificationFormatsEarnings(t *testing.T) {
	var got postmarkEmail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("server-token", "noreply@payview.example", "https://payview.example",
		WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))

	err := c.SendSaleNotification(context.Background(),
		"seller@example.com", "Test File", "buyer@example.com", 1000, 950)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(got.TextBody, "$10.00") || !strings.Contains(got.TextBody, "$9.50") {
		t.Errorf("text body %q missing sale amount or earnings", got.TextBody)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("server-token", "noreply@payview.example", "https://payview.example",
		WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))

	err := c.SendPurchaseConfirmation(context.Background(),
		"buyer@example.com", "Test File", "alice", 1000, "https://payview.example/content/f1")
	if err != nil {
		t.Fatalf("send after retries: %v", err)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("server-token", "noreply@payview.example", "https://payview.example",
		WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))

	err := c.SendPurchaseConfirmation(context.Background(),
		"buyer@example.com", "Test File", "alice", 1000, "https://payview.example/content/f1")
	if err == nil {
		t.Fatal("expected error for 4xx response")
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("attempts = %d, 4xx is permanent and must not be retried", n)
	}
}

func TestSendUnconfigured(t *testing.T) {
	c := NewClient("", "noreply@payview.example", "https://payview.example")
	if c.Configured() {
		t.Error("client with no token must report unconfigured")
	}
	err := c.SendPurchaseConfirmation(context.Background(),
		"buyer@example.com", "Test File", "alice", 1000, "https://payview.example/content/f1")
	if err == nil {
		t.Fatal("expected error when unconfigured")
	}
}
