package whisperx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"tandem/internal/language"
	"tandem/internal/transcription"
)

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Service provides WhisperX transcription.
type Service struct {
	cfg           Config
	commandRunner commandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// CUDAEnabled returns whether CUDA is enabled.
func (s *Service) CUDAEnabled() bool {
	return s.cfg.CUDAEnabled
}

// EngineVersion identifies the model for cache keys.
func (s *Service) EngineVersion() string {
	if v := strings.TrimSpace(s.cfg.EngineVersion); v != "" {
		return v
	}
	return "whisperx:" + s.Model()
}

// Submit transcribes one WAV clip.
func (s *Service) Submit(ctx context.Context, audio []byte, languageHint string) (transcription.Result, error) {
	if len(audio) == 0 {
		return transcription.Result{}, transcription.ErrEmptyAudio
	}
	if s.cfg.WorkDir != "" {
		if err := os.MkdirAll(s.cfg.WorkDir, 0o755); err != nil {
			return transcription.Result{}, fmt.Errorf("whisperx: ensure work dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(s.cfg.WorkDir, "whisperx-*")
	if err != nil {
		return transcription.Result{}, fmt.Errorf("whisperx: create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	source := filepath.Join(dir, "segment.wav")
	if err := os.WriteFile(source, audio, 0o644); err != nil {
		return transcription.Result{}, fmt.Errorf("whisperx: write clip: %w", err)
	}

	output, err := s.run(ctx, UVXCommand, s.buildArgs(source, dir, languageHint)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return transcription.Result{}, ctxErr
		}
		return transcription.Result{}, &transcription.Error{
			Kind: classifyFailure(err, output),
			Op:   "whisperx",
			Err:  fmt.Errorf("%w: %s", err, tail(output)),
		}
	}

	transcript, err := LoadTranscript(filepath.Join(dir, "segment.json"))
	if err != nil {
		return transcription.Result{}, &transcription.Error{Kind: transcription.Transient, Op: "whisperx", Err: err}
	}
	detected := transcript.Language
	if detected == "" {
		detected = language.Hint(languageHint)
	}
	return transcription.Result{Text: transcript.Text(), Language: detected}, nil
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	// Force legacy behavior so bundled WhisperX binaries can load checkpoints safely.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	return cmd.CombinedOutput()
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir, languageHint string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_method", VADMethodSilero,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	if lang := language.Hint(languageHint); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

var rejectedInputMarkers = []string{
	"invalid data found",
	"error opening input",
	"could not open",
	"does not contain any stream",
	"unsupported language",
}

// classifyFailure decides whether a failed run is worth retrying.
func classifyFailure(err error, output []byte) transcription.Kind {
	if errors.Is(err, exec.ErrNotFound) {
		return transcription.Permanent
	}
	message := strings.ToLower(string(output))
	for _, marker := range rejectedInputMarkers {
		if strings.Contains(message, marker) {
			return transcription.Permanent
		}
	}
	return transcription.Transient
}

func tail(output []byte) string {
	text := strings.TrimSpace(string(output))
	const limit = 512
	if len(text) > limit {
		text = "..." + text[len(text)-limit:]
	}
	if text == "" {
		return "no output"
	}
	return text
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the JSON document WhisperX writes next to its input.
type Transcript struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Text joins the non-empty segment texts with spaces.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// LoadTranscript reads a WhisperX JSON file.
func LoadTranscript(jsonPath string) (Transcript, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Transcript{}, fmt.Errorf("read whisperx json: %w", err)
	}
	var payload Transcript
	if err := json.Unmarshal(data, &payload); err != nil {
		return Transcript{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	payload.Language = language.ToISO2(payload.Language)
	return payload, nil
}
