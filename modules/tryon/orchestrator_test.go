package tryon

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// scriptedGenerator - 라벨별로 성공/실패를 지정하는 ImageGenerator
type scriptedGenerator struct {
	mu      sync.Mutex
	failFor map[string]bool // 프롬프트에 포함된 라이팅 노트로 매칭
	prompts []string
	calls   int
}

func (g *scriptedGenerator) GenerateVariant(ctx context.Context, subject, garment []byte, prompt, aspectRatio string) ([]byte, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	for label, fail := range g.failFor {
		if fail && strings.Contains(prompt, labelNote(label)) {
			return nil, errors.New("model refused")
		}
	}
	return []byte("image for " + aspectRatio), nil
}

func labelNote(label string) string {
	for _, v := range DefaultVariants {
		if v.Label == label {
			return v.LightingNote
		}
	}
	return label
}

func TestGenerateBatchAllSucceed(t *testing.T) {
	gen := &scriptedGenerator{}
	o := NewOrchestrator(gen)

	batch := o.GenerateBatch(context.Background(), "job-1", DefaultVariants, []byte("subject"), []byte("garment"), nil, nil, "3:4", "", nil)

	if !batch.Success() {
		t.Fatal("expected batch success")
	}
	if batch.Succeeded != len(DefaultVariants) {
		t.Errorf("expected %d successes, got %d", len(DefaultVariants), batch.Succeeded)
	}
	if len(batch.Errors) != 0 {
		t.Errorf("expected no errors, got %+v", batch.Errors)
	}
	if len(batch.Images()) != len(DefaultVariants) {
		t.Errorf("expected %d images, got %d", len(DefaultVariants), len(batch.Images()))
	}
}

func TestGenerateBatchPartialSuccess(t *testing.T) {
	gen := &scriptedGenerator{failFor: map[string]bool{"neutral": true}}
	o := NewOrchestrator(gen)

	batch := o.GenerateBatch(context.Background(), "job-1", DefaultVariants, []byte("subject"), []byte("garment"), nil, nil, "3:4", "", nil)

	// 일부 실패는 배치 실패가 아니다: 1장이라도 나오면 진행
	if !batch.Success() {
		t.Fatal("partial success must still count as success")
	}
	if batch.Succeeded != len(DefaultVariants)-1 {
		t.Errorf("expected %d successes, got %d", len(DefaultVariants)-1, batch.Succeeded)
	}
	if len(batch.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(batch.Errors))
	}
	if batch.Errors[0].Label != "neutral" {
		t.Errorf("expected neutral to fail, got %s", batch.Errors[0].Label)
	}
}

func TestGenerateBatchAllFail(t *testing.T) {
	gen := &scriptedGenerator{failFor: map[string]bool{"warm": true, "neutral": true, "cool": true}}
	o := NewOrchestrator(gen)

	batch := o.GenerateBatch(context.Background(), "job-1", DefaultVariants, []byte("subject"), []byte("garment"), nil, nil, "3:4", "", nil)

	if batch.Success() {
		t.Fatal("all-failed batch must not count as success")
	}
	if len(batch.Errors) != len(DefaultVariants) {
		t.Errorf("expected %d errors, got %d", len(DefaultVariants), len(batch.Errors))
	}
}

func TestGenerateBatchSkipsCancelledJob(t *testing.T) {
	gen := &scriptedGenerator{}
	o := NewOrchestrator(gen)

	batch := o.GenerateBatch(context.Background(), "job-1", DefaultVariants, []byte("subject"), []byte("garment"), nil, nil, "3:4", "",
		func(jobID string) bool { return true })

	if batch.Success() {
		t.Error("cancelled job must not produce successes")
	}
	if gen.calls != 0 {
		t.Errorf("generator must not be called for cancelled job, got %d calls", gen.calls)
	}
}

func TestGenerateBatchInjectsRetryGuidance(t *testing.T) {
	gen := &scriptedGenerator{}
	o := NewOrchestrator(gen)

	guidance := "- preserve the face\n- add directional light"
	o.GenerateBatch(context.Background(), "job-1", DefaultVariants[:1], []byte("subject"), []byte("garment"), nil, nil, "3:4", guidance, nil)

	if len(gen.prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], guidance) {
		t.Error("retry guidance missing from prompt")
	}
	if !strings.Contains(gen.prompts[0], "CORRECTIONS FROM PREVIOUS ATTEMPT") {
		t.Error("retry section header missing from prompt")
	}
}

func TestBuildVariantPromptOmitsRetrySectionByDefault(t *testing.T) {
	prompt := BuildVariantPrompt(DefaultVariants[0], nil, nil, "")
	if strings.Contains(prompt, "CORRECTIONS FROM PREVIOUS ATTEMPT") {
		t.Error("first attempt prompt must not contain the corrections section")
	}
	if !strings.Contains(prompt, DefaultVariants[0].LightingNote) {
		t.Error("prompt must contain the variant lighting note")
	}
	if !strings.Contains(prompt, DefaultVariants[0].PoseNote) {
		t.Error("prompt must contain the variant pose note")
	}
}
