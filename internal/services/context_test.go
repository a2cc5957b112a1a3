package services_test

import (
	"context"
	"testing"

	"tandem/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "transcribe")
	ctx = services.WithSegmentIndex(ctx, 7)
	ctx = services.WithSource(ctx, "episode.mkv")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcribe" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if idx, ok := services.SegmentIndexFromContext(ctx); !ok || idx != 7 {
		t.Fatalf("unexpected segment index: %v %v", idx, ok)
	}
	if src, ok := services.SourceFromContext(ctx); !ok || src != "episode.mkv" {
		t.Fatalf("unexpected source: %v %v", src, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}

func TestSegmentIndexZeroIsPresent(t *testing.T) {
	ctx := services.WithSegmentIndex(context.Background(), 0)
	if idx, ok := services.SegmentIndexFromContext(ctx); !ok || idx != 0 {
		t.Fatalf("expected index 0 to be present, got %v %v", idx, ok)
	}
	if _, ok := services.SegmentIndexFromContext(context.Background()); ok {
		t.Fatal("expected no segment index on empty context")
	}
}
