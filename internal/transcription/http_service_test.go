package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPServiceSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("model") != "whisper-large" || r.FormValue("language") != "es" {
			t.Errorf("unexpected fields model=%q language=%q", r.FormValue("model"), r.FormValue("language"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			if header.Filename != "segment.wav" || string(data) != "RIFFdata" {
				t.Errorf("unexpected upload %q %q", header.Filename, data)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  hola mundo \n", "language": "Spanish"})
	}))
	defer server.Close()

	service, err := NewHTTPService(HTTPConfig{BaseURL: server.URL + "/v1/", APIKey: "secret", Model: "whisper-large"})
	if err != nil {
		t.Fatalf("NewHTTPService: %v", err)
	}
	if service.EngineVersion() != "http:whisper-large" {
		t.Fatalf("engine version = %q", service.EngineVersion())
	}
	result, err := service.Submit(context.Background(), []byte("RIFFdata"), "es")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Text != "hola mundo" || result.Language != "spanish" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestHTTPServiceStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusRequestEntityTooLarge, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"nope"}`, tt.status)
			}))
			defer server.Close()

			service, err := NewHTTPService(HTTPConfig{BaseURL: server.URL})
			if err != nil {
				t.Fatal(err)
			}
			_, err = service.Submit(context.Background(), []byte("RIFF"), "")
			var status *StatusError
			if !errors.As(err, &status) || status.StatusCode != tt.status {
				t.Fatalf("expected StatusError %d, got %v", tt.status, err)
			}
			if status.Body != `{"error":"nope"}` {
				t.Fatalf("body = %q", status.Body)
			}
			if IsTransient(err) != tt.transient {
				t.Fatalf("IsTransient = %v, want %v", IsTransient(err), tt.transient)
			}
		})
	}
}

func TestHTTPServiceConnectionFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	service, err := NewHTTPService(HTTPConfig{BaseURL: url})
	if err != nil {
		t.Fatal(err)
	}
	_, err = service.Submit(context.Background(), []byte("RIFF"), "")
	if err == nil || !IsTransient(err) {
		t.Fatalf("expected transient connection error, got %v", err)
	}
}

func TestNewHTTPServiceValidation(t *testing.T) {
	if _, err := NewHTTPService(HTTPConfig{BaseURL: "ftp://example.com"}); err == nil {
		t.Fatal("expected scheme validation error")
	}
	service, err := NewHTTPService(HTTPConfig{EngineVersion: "pinned"})
	if err != nil {
		t.Fatal(err)
	}
	if service.EngineVersion() != "pinned" {
		t.Fatalf("engine version = %q", service.EngineVersion())
	}
	if _, err := service.Submit(context.Background(), nil, ""); !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
}
