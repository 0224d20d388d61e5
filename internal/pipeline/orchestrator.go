package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/telellmgram/internal/llm"
	"github.com/edgard/telellmgram/internal/metrics"
)

// Orchestrator runs map-reduce jobs against a completer.
type Orchestrator struct {
	completer llm.Completer
	cfg       Config
	audit     AuditRecorder
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewOrchestrator creates an orchestrator. audit and m may be nil.
func NewOrchestrator(completer llm.Completer, cfg Config, audit AuditRecorder, m *metrics.Metrics, log *slog.Logger) *Orchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Orchestrator{
		completer: completer,
		cfg:       cfg,
		audit:     audit,
		metrics:   m,
		log:       log.With("component", "orchestrator"),
	}
}

// Config returns the orchestrator configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Run maps every chunk of job and reduces the partials. Failed map calls
// become degraded partials. A failed reduce call or a cancelled context ends
// the run in StateFailed; the returned Outcome is never nil in that case.
func (o *Orchestrator) Run(ctx context.Context, job Job) (*Outcome, error) {
	if len(job.Chunks) == 0 {
		return nil, ErrNoChunks
	}
	if job.RunID == uuid.Nil {
		job.RunID = uuid.New()
	}
	pacer := job.Pacer
	if pacer == nil {
		pacer = NewPacer(o.cfg.Pacing)
	}

	out := &Outcome{RunID: job.RunID, State: StateIdle, Chunks: len(job.Chunks)}
	log := o.log.With("run_id", job.RunID, "variant", job.Variant)

	o.beginRun(ctx, job)
	for _, ex := range job.Preliminary {
		ex.RunID = job.RunID
		o.record(ctx, ex)
	}
	o.metrics.AddChunks(len(job.Chunks))

	selected := o.sample(len(job.Chunks))
	out.Mapped = len(selected)
	o.transition(ctx, log, out, StateMapping)

	partials, err := o.mapChunks(ctx, job, pacer, selected)
	out.Partials = partials
	for _, p := range partials {
		if p.Degraded {
			out.Degraded++
		}
	}
	if err != nil {
		return o.fail(ctx, log, out, job.Variant, err)
	}

	o.transition(ctx, log, out, StateReducing)
	text, err := o.reduce(ctx, job, pacer, partials)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, ErrRunDeadline) {
			err = &ReductionError{Partials: partials, Reason: err}
		}
		return o.fail(ctx, log, out, job.Variant, err)
	}

	out.Text = text
	o.transition(ctx, log, out, StateDone)
	o.metrics.ObserveRun(job.Variant, string(StateDone))
	o.finishRun(ctx, *out)
	log.InfoContext(ctx, "Run finished", "chunks", out.Chunks, "mapped", out.Mapped, "degraded", out.Degraded)
	return out, nil
}

func (o *Orchestrator) transition(ctx context.Context, log *slog.Logger, out *Outcome, to State) {
	log.DebugContext(ctx, "Run state changed", "from", out.State, "to", to)
	out.State = to
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, out *Outcome, variant string, err error) (*Outcome, error) {
	out.Reason = err.Error()
	o.transition(ctx, log, out, StateFailed)
	o.metrics.ObserveRun(variant, string(StateFailed))
	o.finishRun(ctx, *out)
	log.ErrorContext(ctx, "Run failed", "error", err, "partials", len(out.Partials))
	return out, err
}

// sample returns the chunk indexes to map, in ascending order.
func (o *Orchestrator) sample(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if !o.cfg.DevelopmentSampling || o.cfg.SampleCap <= 0 || n <= o.cfg.SampleCap {
		return idx
	}

	shuffle := rand.Shuffle
	if o.cfg.Rand != nil {
		shuffle = o.cfg.Rand.Shuffle
	}
	shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	picked := idx[:o.cfg.SampleCap]
	slices.Sort(picked)
	return picked
}

func (o *Orchestrator) mapChunks(ctx context.Context, job Job, pacer *Pacer, selected []int) ([]Partial, error) {
	results := make([]Partial, len(selected))
	done := make([]bool, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i, idx := range selected {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := pacer.Wait(gctx); err != nil {
				return err
			}

			c := job.Chunks[idx]
			start := time.Now()
			res := o.completer.Complete(llm.WithStage(gctx, StageMap), c.Text)
			if err := gctx.Err(); err != nil && !res.OK() {
				return err
			}

			p := Partial{Index: idx, Text: res.String(), Degraded: !res.OK()}
			if idx < len(job.Labels) {
				p.Label = job.Labels[idx]
			}
			results[i] = p
			done[i] = true

			o.record(gctx, Exchange{
				RunID:    job.RunID,
				Stage:    StageMap,
				Index:    idx,
				Prompt:   c.Text,
				Response: p.Text,
				Degraded: p.Degraded,
				Latency:  time.Since(start),
			})
			if p.Degraded {
				o.log.WarnContext(gctx, "Chunk call degraded", "run_id", job.RunID, "chunk", idx, "error", res.Err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	partials := make([]Partial, 0, len(results))
	for i := range results {
		if done[i] {
			partials = append(partials, results[i])
		}
	}
	if err != nil {
		return partials, fmt.Errorf("mapping interrupted: %w", err)
	}
	return partials, nil
}

// reduce folds partials into one text. When the reduction prompt exceeds
// MaxChars the largest fitting prefix of at least two items is reduced first
// and its result takes their place.
func (o *Orchestrator) reduce(ctx context.Context, job Job, pacer *Pacer, partials []Partial) (string, error) {
	if job.Reduce.SkipSingleReduce && len(partials) == 1 && !partials[0].Degraded {
		return partials[0].Text, nil
	}

	items := make([]reduceItem, len(partials))
	for i, p := range partials {
		items[i] = reduceItem{Label: p.Label, Text: p.Text}
	}

	step := 0
	for {
		prompt := reducePrompt(job.Reduce, items)
		if len(items) <= 2 || o.fits(prompt) {
			return o.reduceCall(ctx, job, pacer, step, prompt)
		}

		k := 2
		for n := len(items) - 1; n > 2; n-- {
			if o.fits(reducePrompt(job.Reduce, items[:n])) {
				k = n
				break
			}
		}

		merged, err := o.reduceCall(ctx, job, pacer, step, reducePrompt(job.Reduce, items[:k]))
		if err != nil {
			return "", err
		}
		o.log.InfoContext(ctx, "Reduced partial batch", "run_id", job.RunID, "batch", k, "remaining", len(items)-k)

		items = append([]reduceItem{{Text: merged}}, items[k:]...)
		step++
	}
}

func (o *Orchestrator) reduceCall(ctx context.Context, job Job, pacer *Pacer, step int, prompt string) (string, error) {
	if err := pacer.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	res := o.completer.Complete(llm.WithStage(ctx, StageReduce), prompt)
	o.record(ctx, Exchange{
		RunID:    job.RunID,
		Stage:    StageReduce,
		Index:    step,
		Prompt:   prompt,
		Response: res.String(),
		Degraded: !res.OK(),
		Latency:  time.Since(start),
	})

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !res.OK() {
		return "", res.Err
	}
	return res.Text, nil
}

func (o *Orchestrator) fits(prompt string) bool {
	return o.cfg.MaxChars <= 0 || len([]rune(prompt)) <= o.cfg.MaxChars
}

type reduceItem struct {
	Label string
	Text  string
}

func reducePrompt(plan ReducePlan, items []reduceItem) string {
	var b []byte
	b = append(b, plan.Header...)
	b = append(b, "\n\n"...)
	for i, it := range items {
		if it.Label != "" {
			b = fmt.Appendf(b, "%d) [%s] %s\n\n", i+1, it.Label, it.Text)
		} else {
			b = fmt.Appendf(b, "%d) %s\n\n", i+1, it.Text)
		}
	}
	b = append(b, plan.Closing...)
	return string(b)
}

// IsCancellation reports whether err ended a run because its context was
// done.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
