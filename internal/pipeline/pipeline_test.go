package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/telellmgram/internal/chunk"
	"github.com/edgard/telellmgram/internal/llm"
	"github.com/edgard/telellmgram/internal/metrics"
	"github.com/edgard/telellmgram/internal/pipeline"
)

type call struct {
	stage  string
	prompt string
}

// stubCompleter answers map calls with "answer to <chunk text>" and reduce
// calls with "final". Hooks can override either.
type stubCompleter struct {
	mu       sync.Mutex
	calls    []call
	mapFn    func(ctx context.Context, prompt string) llm.Result
	reduceFn func(ctx context.Context, prompt string) llm.Result
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) llm.Result {
	stage := llm.StageFrom(ctx)
	s.mu.Lock()
	s.calls = append(s.calls, call{stage: stage, prompt: prompt})
	s.mu.Unlock()

	switch stage {
	case pipeline.StageMap:
		if s.mapFn != nil {
			return s.mapFn(ctx, prompt)
		}
		return llm.Success("answer to " + prompt)
	default:
		if s.reduceFn != nil {
			return s.reduceFn(ctx, prompt)
		}
		return llm.Success("final")
	}
}

func (s *stubCompleter) stageCalls(stage string) []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []call
	for _, c := range s.calls {
		if c.stage == stage {
			out = append(out, c)
		}
	}
	return out
}

type memoryAudit struct {
	mu        sync.Mutex
	begun     []uuid.UUID
	exchanges []pipeline.Exchange
	finished  []pipeline.Outcome
}

func (a *memoryAudit) BeginRun(_ context.Context, id uuid.UUID, _, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.begun = append(a.begun, id)
	return nil
}

func (a *memoryAudit) RecordExchange(_ context.Context, ex pipeline.Exchange) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchanges = append(a.exchanges, ex)
	return nil
}

func (a *memoryAudit) FinishRun(_ context.Context, out pipeline.Outcome) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finished = append(a.finished, out)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chunks(n int) []chunk.Chunk {
	out := make([]chunk.Chunk, n)
	for i := range out {
		out[i] = chunk.Chunk{Text: fmt.Sprintf("chunk-%d", i+1)}
	}
	return out
}

func plan() pipeline.ReducePlan {
	return pipeline.ReducePlan{Header: "Partial analysis:", Closing: "Conclude in 800 words."}
}

func TestRunDegradedChunkStillDone(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{
		mapFn: func(_ context.Context, prompt string) llm.Result {
			if prompt == "chunk-2" {
				return llm.Failure(errors.New("rate limited"))
			}
			return llm.Success("answer to " + prompt)
		},
	}
	audit := &memoryAudit{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	o := pipeline.NewOrchestrator(stub, pipeline.Config{MaxChars: chunk.DefaultMaxChars}, audit, m, discardLogger())
	out, err := o.Run(context.Background(), pipeline.Job{Variant: "single", Chunks: chunks(5), Reduce: plan()})
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateDone, out.State)
	assert.Equal(t, "final", out.Text)
	assert.Equal(t, 5, out.Chunks)
	assert.Equal(t, 5, out.Mapped)
	assert.Equal(t, 1, out.Degraded)
	require.Len(t, out.Partials, 5)
	assert.True(t, out.Partials[1].Degraded)
	assert.True(t, llm.IsErrorText(out.Partials[1].Text))
	for i, p := range out.Partials {
		assert.Equal(t, i, p.Index)
	}

	reduces := stub.stageCalls(pipeline.StageReduce)
	require.Len(t, reduces, 1)
	prompt := reduces[0].prompt
	assert.True(t, strings.HasPrefix(prompt, "Partial analysis:"))
	assert.True(t, strings.HasSuffix(prompt, "Conclude in 800 words."))
	assert.Contains(t, prompt, "1) answer to chunk-1")
	assert.Contains(t, prompt, "2) An error occurred: rate limited")
	assert.Contains(t, prompt, "5) answer to chunk-5")

	require.Len(t, audit.begun, 1)
	assert.Equal(t, out.RunID, audit.begun[0])
	assert.Len(t, audit.exchanges, 6)
	require.Len(t, audit.finished, 1)
	assert.Equal(t, pipeline.StateDone, audit.finished[0].State)

	assert.InDelta(t, 5, testutil.ToFloat64(m.ChunksBuilt), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Runs.WithLabelValues("single", string(pipeline.StateDone))), 0)
}

func TestRunRecursiveReduce(t *testing.T) {
	t.Parallel()

	partial := strings.Repeat("a", 50)
	stub := &stubCompleter{
		mapFn:    func(context.Context, string) llm.Result { return llm.Success(partial) },
		reduceFn: func(context.Context, string) llm.Result {
			return llm.Success(strings.Repeat("b", 50))
		},
	}

	// Header "H" and closing "C": n items take 4 + 55n characters, so two
	// items fit in 130 and three do not.
	const maxChars = 130
	o := pipeline.NewOrchestrator(stub, pipeline.Config{MaxChars: maxChars}, nil, nil, discardLogger())
	out, err := o.Run(context.Background(), pipeline.Job{
		Chunks: chunks(4),
		Reduce: pipeline.ReducePlan{Header: "H", Closing: "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateDone, out.State)

	reduces := stub.stageCalls(pipeline.StageReduce)
	require.Len(t, reduces, 3)
	for i, r := range reduces {
		assert.LessOrEqual(t, len([]rune(r.prompt)), maxChars, "reduce prompt %d exceeds budget", i)
	}
	assert.Contains(t, reduces[1].prompt, "1) "+strings.Repeat("b", 50))
	assert.Equal(t, strings.Repeat("b", 50), out.Text)
}

func TestRunReduceOverBudgetPair(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{
		mapFn: func(context.Context, string) llm.Result { return llm.Success(strings.Repeat("a", 100)) },
	}

	// Two partials alone exceed the budget; there is nothing left to split.
	const maxChars = 130
	o := pipeline.NewOrchestrator(stub, pipeline.Config{MaxChars: maxChars}, nil, nil, discardLogger())
	out, err := o.Run(context.Background(), pipeline.Job{
		Chunks: chunks(2),
		Reduce: pipeline.ReducePlan{Header: "H", Closing: "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateDone, out.State)
	assert.Equal(t, "final", out.Text)

	reduces := stub.stageCalls(pipeline.StageReduce)
	require.Len(t, reduces, 1)
	assert.Greater(t, len([]rune(reduces[0].prompt)), maxChars)
}

func TestRunReductionFailed(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{
		reduceFn: func(context.Context, string) llm.Result {
			return llm.Failure(errors.New("service unavailable"))
		},
	}
	audit := &memoryAudit{}

	o := pipeline.NewOrchestrator(stub, pipeline.Config{}, audit, nil, discardLogger())
	out, err := o.Run(context.Background(), pipeline.Job{Chunks: chunks(3), Reduce: plan()})
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrReductionFailed)

	var rerr *pipeline.ReductionError
	require.ErrorAs(t, err, &rerr)
	assert.Len(t, rerr.Partials, 3)
	assert.Contains(t, rerr.Error(), "service unavailable")

	require.NotNil(t, out)
	assert.Equal(t, pipeline.StateFailed, out.State)
	assert.Len(t, out.Partials, 3)
	assert.NotEmpty(t, out.Reason)
	require.Len(t, audit.finished, 1)
	assert.Equal(t, pipeline.StateFailed, audit.finished[0].State)
}

func TestRunCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stub := &stubCompleter{}
	stub.mapFn = func(_ context.Context, prompt string) llm.Result {
		if prompt == "chunk-2" {
			cancel()
		}
		return llm.Success("answer")
	}

	o := pipeline.NewOrchestrator(stub, pipeline.Config{}, nil, nil, discardLogger())
	out, err := o.Run(ctx, pipeline.Job{Chunks: chunks(5), Reduce: plan()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, pipeline.IsCancellation(err))
	assert.NotErrorIs(t, err, pipeline.ErrReductionFailed)

	require.NotNil(t, out)
	assert.Equal(t, pipeline.StateFailed, out.State)
	assert.Len(t, stub.stageCalls(pipeline.StageMap), 2)
	assert.Empty(t, stub.stageCalls(pipeline.StageReduce))
}

func TestRunPacingPastDeadline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		chunks   int
		mapCalls int
		partials int
	}{
		{name: "During mapping", chunks: 3, mapCalls: 1, partials: 1},
		{name: "Before reduction", chunks: 1, mapCalls: 1, partials: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			stub := &stubCompleter{}
			o := pipeline.NewOrchestrator(stub, pipeline.Config{Pacing: time.Minute}, nil, nil, discardLogger())

			out, err := o.Run(ctx, pipeline.Job{Chunks: chunks(tt.chunks), Reduce: plan()})
			require.Error(t, err)
			assert.ErrorIs(t, err, pipeline.ErrRunDeadline)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.True(t, pipeline.IsCancellation(err))
			assert.NotErrorIs(t, err, pipeline.ErrReductionFailed)
			assert.NoError(t, ctx.Err(), "the run should fail before the deadline")

			require.NotNil(t, out)
			assert.Equal(t, pipeline.StateFailed, out.State)
			assert.Len(t, out.Partials, tt.partials)
			assert.Len(t, stub.stageCalls(pipeline.StageMap), tt.mapCalls)
			assert.Empty(t, stub.stageCalls(pipeline.StageReduce))
		})
	}
}

func TestRunDevelopmentSampling(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{}
	o := pipeline.NewOrchestrator(stub, pipeline.Config{
		DevelopmentSampling: true,
		SampleCap:           3,
		Rand:                rand.New(rand.NewPCG(1, 2)),
	}, nil, nil, discardLogger())

	out, err := o.Run(context.Background(), pipeline.Job{Chunks: chunks(10), Reduce: plan()})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Chunks)
	assert.Equal(t, 3, out.Mapped)
	require.Len(t, out.Partials, 3)
	for i := 1; i < len(out.Partials); i++ {
		assert.Less(t, out.Partials[i-1].Index, out.Partials[i].Index, "sampled partials keep chunk order")
	}
	assert.Len(t, stub.stageCalls(pipeline.StageMap), 3)
}

func TestRunSamplingOffMapsEverything(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{}
	o := pipeline.NewOrchestrator(stub, pipeline.Config{SampleCap: 3}, nil, nil, discardLogger())

	out, err := o.Run(context.Background(), pipeline.Job{Chunks: chunks(10), Reduce: plan()})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Mapped)
	assert.Len(t, stub.stageCalls(pipeline.StageMap), 10)
}

func TestRunConcurrentKeepsOrder(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{
		mapFn: func(_ context.Context, prompt string) llm.Result {
			// Later chunks finish first.
			var n int
			_, _ = fmt.Sscanf(prompt, "chunk-%d", &n)
			time.Sleep(time.Duration(10-n) * 2 * time.Millisecond)
			return llm.Success("answer to " + prompt)
		},
	}
	o := pipeline.NewOrchestrator(stub, pipeline.Config{Concurrency: 4}, nil, nil, discardLogger())

	labels := make([]string, 8)
	for i := range labels {
		labels[i] = fmt.Sprintf("media-%d", i+1)
	}
	out, err := o.Run(context.Background(), pipeline.Job{Chunks: chunks(8), Labels: labels, Reduce: plan()})
	require.NoError(t, err)
	require.Len(t, out.Partials, 8)
	for i, p := range out.Partials {
		assert.Equal(t, fmt.Sprintf("answer to chunk-%d", i+1), p.Text)
		assert.Equal(t, labels[i], p.Label)
	}

	reduces := stub.stageCalls(pipeline.StageReduce)
	require.Len(t, reduces, 1)
	assert.Contains(t, reduces[0].prompt, "3) [media-3] answer to chunk-3")
}

func TestRunSkipSingleReduce(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{}
	o := pipeline.NewOrchestrator(stub, pipeline.Config{}, nil, nil, discardLogger())

	p := plan()
	p.SkipSingleReduce = true
	out, err := o.Run(context.Background(), pipeline.Job{Chunks: chunks(1), Reduce: p})
	require.NoError(t, err)
	assert.Equal(t, "answer to chunk-1", out.Text)
	assert.Empty(t, stub.stageCalls(pipeline.StageReduce))
}

func TestRunPacing(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{}
	o := pipeline.NewOrchestrator(stub, pipeline.Config{Pacing: 20 * time.Millisecond}, nil, nil, discardLogger())

	start := time.Now()
	_, err := o.Run(context.Background(), pipeline.Job{Chunks: chunks(3), Reduce: plan()})
	require.NoError(t, err)

	// Four calls, three enforced gaps.
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestRunRequiresChunks(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{}
	o := pipeline.NewOrchestrator(stub, pipeline.Config{}, nil, nil, discardLogger())

	out, err := o.Run(context.Background(), pipeline.Job{Reduce: plan()})
	require.ErrorIs(t, err, pipeline.ErrNoChunks)
	assert.Nil(t, out)
	assert.Empty(t, stub.calls)
}
