package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPBaseURL = "https://api.openai.com/v1"
	defaultHTTPModel   = "whisper-1"
	defaultHTTPTimeout = 2 * time.Minute
	maxErrorBody       = 4096
)

// HTTPConfig describes an OpenAI-compatible transcription endpoint.
type HTTPConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	EngineVersion string
	HTTPClient    *http.Client
}

// HTTPService posts audio to <base>/audio/transcriptions.
type HTTPService struct {
	apiKey        string
	model         string
	engineVersion string
	endpoint      *url.URL
	http          *http.Client
}

type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// NewHTTPService validates cfg and returns a ready service.
func NewHTTPService(cfg HTTPConfig) (*HTTPService, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultHTTPBaseURL
	}
	baseURL, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("transcription: parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("transcription: base url %q must be http or https", base)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultHTTPModel
	}
	version := strings.TrimSpace(cfg.EngineVersion)
	if version == "" {
		version = "http:" + model
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPService{
		apiKey:        strings.TrimSpace(cfg.APIKey),
		model:         model,
		engineVersion: version,
		endpoint:      baseURL.JoinPath("audio", "transcriptions"),
		http:          client,
	}, nil
}

// EngineVersion identifies the remote model.
func (s *HTTPService) EngineVersion() string { return s.engineVersion }

// Submit uploads one WAV clip and returns its transcript.
func (s *HTTPService) Submit(ctx context.Context, audio []byte, languageHint string) (Result, error) {
	if len(audio) == 0 {
		return Result{}, ErrEmptyAudio
	}
	body, contentType, err := s.buildForm(audio, languageHint)
	if err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.String(), body)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Result{}, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	var payload transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Result{}, fmt.Errorf("transcription: truncated response: %w", err)
		}
		return Result{}, fmt.Errorf("transcription: decode response: %w", err)
	}
	return Result{
		Text:     strings.TrimSpace(payload.Text),
		Language: strings.ToLower(strings.TrimSpace(payload.Language)),
	}, nil
}

func (s *HTTPService) buildForm(audio []byte, languageHint string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "segment.wav")
	if err != nil {
		return nil, "", fmt.Errorf("transcription: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("transcription: build form: %w", err)
	}
	fields := [][2]string{{"model", s.model}, {"response_format", "json"}}
	if hint := strings.TrimSpace(languageHint); hint != "" {
		fields = append(fields, [2]string{"language", hint})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("transcription: build form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("transcription: build form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
