package tryon

import (
	"context"
	"strings"
	"sync"
	"testing"

	"fitroom-tryon-server/modules/analyzer"
	"fitroom-tryon-server/modules/common/config"
)

// attemptAwareAnalyzer - 처음 failCalls번의 신원 체크만 실패시키는 analyzer
// 검증은 순차 실행이라 1차 검증의 호출 수는 성공 변형 수와 같다
type attemptAwareAnalyzer struct {
	stubAnalyzer
	mu        sync.Mutex
	calls     int
	failCalls int
}

func (a *attemptAwareAnalyzer) ScoreIdentity(ctx context.Context, reference, candidate []byte) (*analyzer.IdentityScore, error) {
	a.mu.Lock()
	a.calls++
	failing := a.calls <= a.failCalls
	a.mu.Unlock()
	if failing {
		return &analyzer.IdentityScore{Similarity: 60, Reason: "face replaced"}, nil
	}
	return &analyzer.IdentityScore{Similarity: 95}, nil
}

// countingGenerator - 호출 수와 프롬프트 기록
type countingGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
}

func (g *countingGenerator) GenerateVariant(ctx context.Context, subject, garment []byte, prompt, aspectRatio string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	return []byte("generated"), nil
}

func (g *countingGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newRunnerWith(a analyzer.ImageAnalyzer, g ImageGenerator) *RetryRunner {
	return NewRetryRunner(NewOrchestrator(g), NewValidator(a, config.DefaultThresholds()))
}

func TestRunNoRetryWhenValidationPasses(t *testing.T) {
	gen := &countingGenerator{}
	runner := newRunnerWith(&stubAnalyzer{}, gen)

	result := runner.Run(context.Background(), "job-1", DefaultVariants, []byte("subject"), []byte("reference"), []byte("garment"), nil, nil, "3:4", nil)

	if result.RetryUsed {
		t.Error("passing validation must not trigger a retry")
	}
	if result.Report == nil || !result.Report.Passed {
		t.Error("expected passing report")
	}
	if gen.calls != len(DefaultVariants) {
		t.Errorf("expected %d generator calls, got %d", len(DefaultVariants), gen.calls)
	}
}

func TestRunRetriesExactlyOnce(t *testing.T) {
	gen := &countingGenerator{}
	// 1차 검증(변형 수만큼의 신원 체크)만 실패, 2차 검증은 통과
	a := &attemptAwareAnalyzer{failCalls: len(DefaultVariants)}
	runner := newRunnerWith(a, gen)

	result := runner.Run(context.Background(), "job-1", DefaultVariants, []byte("subject"), []byte("reference"), []byte("garment"), nil, nil, "3:4", nil)

	if !result.RetryUsed {
		t.Error("critical failure must trigger exactly one retry")
	}
	if result.Report == nil || !result.Report.Passed {
		t.Error("expected retry round to pass validation")
	}
	if gen.calls != 2*len(DefaultVariants) {
		t.Errorf("expected %d generator calls (two attempts), got %d", 2*len(DefaultVariants), gen.calls)
	}

	// 2차 프롬프트에는 교정 가이드가 들어간다
	retryPrompts := gen.prompts[len(DefaultVariants):]
	for _, p := range retryPrompts {
		if !strings.Contains(p, "CORRECTIONS FROM PREVIOUS ATTEMPT") {
			t.Error("retry prompt missing corrections section")
			break
		}
	}
}

func TestRunAcceptsSecondAttemptEvenIfStillFailing(t *testing.T) {
	gen := &countingGenerator{}
	a := &attemptAwareAnalyzer{failCalls: 100} // 두 라운드 모두 critical
	runner := newRunnerWith(a, gen)

	result := runner.Run(context.Background(), "job-1", DefaultVariants, []byte("subject"), []byte("reference"), []byte("garment"), nil, nil, "3:4", nil)

	if !result.RetryUsed {
		t.Error("expected retry to have been used")
	}
	if result.Report == nil {
		t.Fatal("expected a report for the second attempt")
	}
	// 재시도는 1회뿐: 여전히 실패해도 결과는 받아들이고 passed=false로 기록
	if result.Report.Passed {
		t.Error("second attempt should still be failing in this scenario")
	}
	if gen.calls != 2*len(DefaultVariants) {
		t.Errorf("expected exactly two attempts, got %d calls", gen.calls)
	}
	if result.Batch == nil || !result.Batch.Success() {
		t.Error("expected the second attempt batch to be returned")
	}
}

func TestRunSkipsRetryWhenCancelled(t *testing.T) {
	gen := &countingGenerator{}
	a := &attemptAwareAnalyzer{failCalls: 100}
	runner := newRunnerWith(a, gen)

	cancelledAfterFirst := false
	isCancelled := func(jobID string) bool {
		// 1차 생성은 통과시키고 재시도 직전에 취소
		if gen.count() >= len(DefaultVariants) {
			cancelledAfterFirst = true
			return true
		}
		return false
	}

	result := runner.Run(context.Background(), "job-1", DefaultVariants, []byte("subject"), []byte("reference"), []byte("garment"), nil, nil, "3:4", isCancelled)

	if !cancelledAfterFirst {
		t.Fatal("test setup: cancellation was never consulted after first attempt")
	}
	if result.RetryUsed {
		t.Error("cancelled job must not enter the retry attempt")
	}
	if gen.calls != len(DefaultVariants) {
		t.Errorf("expected only the first attempt, got %d calls", gen.calls)
	}
}
