package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTokenServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestAppTokenSourceExchangeAndCache(t *testing.T) {
	exchanges := 0
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		if r.Form.Get("client_id") != "id" || r.Form.Get("client_secret") != "secret" {
			t.Errorf("credentials = %q/%q", r.Form.Get("client_id"), r.Form.Get("client_secret"))
		}
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok-1", ExpiresIn: 3600})
	})

	src, err := NewAppTokenSource("id", "secret", srv.URL, nil)
	if err != nil {
		t.Fatalf("NewAppTokenSource: %v", err)
	}

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "tok-1" {
		t.Errorf("token = %q", tok)
	}

	// Second call hits the cache.
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("cached Token: %v", err)
	}
	if exchanges != 1 {
		t.Errorf("exchanges = %d, want 1", exchanges)
	}
}

func TestAppTokenSourceRefreshDiscardsCache(t *testing.T) {
	exchanges := 0
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", ExpiresIn: 3600})
	})

	src, err := NewAppTokenSource("id", "secret", srv.URL, nil)
	if err != nil {
		t.Fatalf("NewAppTokenSource: %v", err)
	}

	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if err := src.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if exchanges != 2 {
		t.Errorf("exchanges = %d, want 2", exchanges)
	}
}

func TestAppTokenSourceRejectedCredentials(t *testing.T) {
	srv := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"status": 401, "message": "invalid client"})
	})

	src, err := NewAppTokenSource("id", "bad", srv.URL, nil)
	if err != nil {
		t.Fatalf("NewAppTokenSource: %v", err)
	}

	_, err = src.Token(context.Background())
	if !errors.Is(err, ErrReauthRequired) {
		t.Errorf("err = %v, want ErrReauthRequired", err)
	}
}

func TestAppTokenSourceRequiresCredentials(t *testing.T) {
	if _, err := NewAppTokenSource("", "secret", "", nil); err == nil {
		t.Error("empty client id should be rejected")
	}
	if _, err := NewAppTokenSource("id", "", "", nil); err == nil {
		t.Error("empty client secret should be rejected")
	}
}

func TestStaticTokenSource(t *testing.T) {
	src := &StaticTokenSource{Credential: "abc"}
	tok, err := src.Token(context.Background())
	if err != nil || tok != "abc" {
		t.Errorf("Token = %q, %v", tok, err)
	}

	empty := &StaticTokenSource{}
	if _, err := empty.Token(context.Background()); !errors.Is(err, ErrReauthRequired) {
		t.Errorf("empty credential err = %v, want ErrReauthRequired", err)
	}
}
