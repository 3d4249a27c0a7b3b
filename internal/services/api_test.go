package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// failingBody simulates a failure when reading response body
type failingBody struct{}

func (failingBody) Read(p []byte) (int, error) { return 0, errors.New("read failed") }
func (failingBody) Close() error               { return nil }

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com", customClient)

			if srv.baseURL != "http://example.com" {
				t.Errorf("expected baseURL 'http://example.com', got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Defaults", func(t *testing.T) {
			srv := NewAPIService("", nil)

			if srv.baseURL != defaultProxyURL {
				t.Errorf("expected default baseURL %s, got %s", defaultProxyURL, srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("expected GET method, got %s", r.Method)
			}
			if r.Header.Get("X-Auth-File") != "headers.json" {
				t.Errorf("expected X-Auth-File header, got %q", r.Header.Get("X-Auth-File"))
			}
			if r.Header.Get("Content-Type") != "" {
				t.Errorf("expected no content type on GET, got %q", r.Header.Get("Content-Type"))
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"status": "success"})
		}))
		defer server.Close()

		srv := NewAPIService(server.URL, nil)
		srv.SetHeader("X-Auth-File", "headers.json")

		resp, err := srv.Get(context.Background(), "/test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !resp.OK() {
			t.Errorf("expected 2xx, got %d", resp.StatusCode)
		}

		var body map[string]string
		if err := resp.Decode(&body); err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		if body["status"] != "success" {
			t.Errorf("expected status success, got %v", body)
		}
	})

	t.Run("Post encodes JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
			}
			data, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(data), `"title":"Red (Taylor's Version)"`) {
				t.Errorf("unexpected body %s", data)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		srv := NewAPIService(server.URL, nil)
		resp, err := srv.Post(context.Background(), "/api/playlists", map[string]string{"title": "Red (Taylor's Version)"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusCreated {
			t.Errorf("expected 201, got %d", resp.StatusCode)
		}
	})

	t.Run("Error Detail", func(t *testing.T) {
		resp := &APIResponse{StatusCode: 422, Body: []byte(`{"detail":"bad request"}`)}
		if resp.OK() {
			t.Error("expected non-2xx response")
		}
		if resp.Detail() != "bad request" {
			t.Errorf("expected detail, got %q", resp.Detail())
		}

		plain := &APIResponse{StatusCode: 500, Body: []byte("oops")}
		if plain.Detail() != "" {
			t.Errorf("expected empty detail for non-JSON body, got %q", plain.Detail())
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection failed")
		})}

		if _, err := NewAPIService("http://example.com", client).Get(context.Background(), "/x"); err == nil {
			t.Error("expected error on transport failure")
		}
	})

	t.Run("Body Read Failure", func(t *testing.T) {
		client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: 200, Body: failingBody{}, Header: make(http.Header)}, nil
		})}

		_, err := NewAPIService("http://example.com", client).Get(context.Background(), "/x")
		if err == nil || !strings.Contains(err.Error(), "failed to read response") {
			t.Errorf("expected read error, got %v", err)
		}
	})

	t.Run("Unencodable Body", func(t *testing.T) {
		_, err := NewAPIService("http://example.com", nil).Post(context.Background(), "/x", make(chan int))
		if err == nil || !strings.Contains(err.Error(), "failed to encode request") {
			t.Errorf("expected encode error, got %v", err)
		}
	})
}
