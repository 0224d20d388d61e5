package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/telellmgram/internal/chunk"
	"github.com/edgard/telellmgram/internal/config"
	"github.com/edgard/telellmgram/internal/corpus"
	"github.com/edgard/telellmgram/internal/llm"
	"github.com/edgard/telellmgram/internal/pipeline"
	"github.com/edgard/telellmgram/internal/relevance"
)

// Analyzer runs analysis variants over the corpus.
type Analyzer struct {
	index   *corpus.Index
	store   corpus.Store
	orch    *pipeline.Orchestrator
	deriver *relevance.Deriver
	cfg     config.AnalysisConfig
	log     *slog.Logger
}

// NewAnalyzer creates an analyzer. completer is used for keyword derivation;
// chunk calls go through orch.
func NewAnalyzer(index *corpus.Index, store corpus.Store, completer llm.Completer, orch *pipeline.Orchestrator, cfg config.AnalysisConfig, log *slog.Logger) *Analyzer {
	return &Analyzer{
		index:   index,
		store:   store,
		orch:    orch,
		deriver: relevance.NewDeriver(completer, cfg.Language, log),
		cfg:     cfg,
		log:     log.With("component", "analyzer"),
	}
}

// Index returns the corpus index the analyzer reads.
func (a *Analyzer) Index() *corpus.Index {
	return a.index
}

// plan is a variant's configuration of one run.
type plan struct {
	chunks          []chunk.Chunk
	labels          []string
	reduce          pipeline.ReducePlan
	pacing          time.Duration
	keywords        []string
	keywordFallback bool
	preliminary     []pipeline.Exchange
}

// Run validates req, selects the records for variant v and runs the
// map-reduce pipeline over them. Validation errors, unknown media and empty
// selections are returned before any model call.
func (a *Analyzer) Run(ctx context.Context, v Variant, req Request) (*Report, error) {
	if err := req.validate(v); err != nil {
		return nil, err
	}

	rng, err := corpus.ParseDateRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	media := make([]corpus.MediaDescriptor, 0, len(req.MediaIDs))
	for _, id := range req.MediaIDs {
		d, err := a.index.Lookup(id)
		if err != nil {
			return nil, err
		}
		media = append(media, d)
	}

	runID := uuid.New()
	log := a.log.With("run_id", runID, "variant", v)
	log.InfoContext(ctx, "Analysis requested", "media", len(media), "range", rng.String())

	var p *plan
	switch v {
	case SingleMedia:
		p, err = a.planSingle(ctx, media[0], rng, req)
	case Topic:
		p, err = a.planTopic(ctx, media, rng, req)
	case TimeWindow:
		p, err = a.planWindow(ctx, media[0], rng, req.Question, false)
	case Trend:
		p, err = a.planWindow(ctx, media[0], rng, fmt.Sprintf(TrendRequestFmt, media[0].Name), true)
	case Individual:
		p, err = a.planIndividual(ctx, media[0], rng, req)
	default:
		err = fmt.Errorf("%w: unknown variant %q", ErrInvalidRequest, v)
	}
	if err != nil {
		return nil, err
	}

	records := 0
	for _, c := range p.chunks {
		records += len(c.Records)
	}
	if len(p.chunks) == 0 {
		log.InfoContext(ctx, "Nothing to analyze after filtering")
		if len(p.preliminary) > 0 {
			a.orch.Abandon(ctx, pipeline.Job{
				RunID:       runID,
				Variant:     string(v),
				Request:     req.Summary(v),
				Preliminary: p.preliminary,
			}, ErrEmptyCorpus)
		}
		return nil, ErrEmptyCorpus
	}

	out, err := a.orch.Run(ctx, pipeline.Job{
		RunID:       runID,
		Variant:     string(v),
		Request:     req.Summary(v),
		Chunks:      p.chunks,
		Labels:      p.labels,
		Reduce:      p.reduce,
		Pacer:       pipeline.NewPacer(p.pacing),
		Preliminary: p.preliminary,
	})
	if err != nil {
		return nil, err
	}

	return &Report{
		RunID:           out.RunID,
		Variant:         v,
		Text:            out.Text,
		Media:           media,
		Range:           rng,
		Keywords:        p.keywords,
		KeywordFallback: p.keywordFallback,
		Records:         records,
		Chunks:          out.Chunks,
		Mapped:          out.Mapped,
		Degraded:        out.Degraded,
	}, nil
}

func (a *Analyzer) records(ctx context.Context, d corpus.MediaDescriptor, rng corpus.DateRange) ([]corpus.MessageRecord, error) {
	all, err := a.store.RecordsFor(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records of media %d: %w", d.ID, err)
	}
	return corpus.FilterByDate(all, rng), nil
}

func (a *Analyzer) maxChars() int {
	return a.orch.Config().MaxChars
}

func (a *Analyzer) planSingle(ctx context.Context, d corpus.MediaDescriptor, rng corpus.DateRange, req Request) (*plan, error) {
	recs, err := a.records(ctx, d, rng)
	if err != nil {
		return nil, err
	}

	b := chunk.Builder{
		Preamble:   singleHeader(d.Kind, req.Question),
		Closing:    singleClosing(a.cfg.WordLimits.SingleMap, a.cfg.Language),
		MaxChars:   a.maxChars(),
		MinLetters: a.cfg.LetterFloors.Single,
		Line:       singleLine,
	}
	return &plan{
		chunks: b.Build(recs),
		reduce: pipeline.ReducePlan{
			Header:  singleReduceHeader(d.Kind, req.Question),
			Closing: singleReduceClosing(a.cfg.WordLimits.SingleReduce, a.cfg.Language),
		},
		pacing: a.cfg.Pacing.Single,
	}, nil
}

func (a *Analyzer) planTopic(ctx context.Context, media []corpus.MediaDescriptor, rng corpus.DateRange, req Request) (*plan, error) {
	perMedia := make([][]corpus.MessageRecord, len(media))
	total := 0
	for i, d := range media {
		recs, err := a.records(ctx, d, rng)
		if err != nil {
			return nil, err
		}
		perMedia[i] = recs
		total += len(recs)
	}

	p := &plan{
		reduce: pipeline.ReducePlan{
			Header:  topicReduceHeader(req.Question),
			Closing: topicReduceClosing(a.cfg.WordLimits.TopicReduce, a.cfg.Language),
		},
		pacing:   a.cfg.Pacing.Topic,
		keywords: req.Keywords,
	}
	if total == 0 {
		return p, nil
	}

	if len(p.keywords) == 0 {
		d := a.deriver.DeriveKeywords(ctx, req.Question, a.cfg.KeywordCount)
		p.keywords = d.Keywords
		p.keywordFallback = d.Fallback
		p.preliminary = append(p.preliminary, pipeline.Exchange{
			Stage:    "keywords",
			Prompt:   d.Prompt,
			Response: d.Response.String(),
			Degraded: !d.Response.OK(),
		})
		if err := pause(ctx, a.cfg.Pacing.Keyword); err != nil {
			return nil, err
		}
	}

	for i, d := range media {
		selected := relevance.Records(relevance.SelectTopN(perMedia[i], p.keywords, a.cfg.TopN))
		b := chunk.Builder{
			Preamble: topicHeader(d.Name, req.Question),
			Closing:  topicClosing(a.cfg.WordLimits.TopicMap, a.cfg.Language),
			MaxChars: a.maxChars(),
		}
		for _, c := range b.Build(selected) {
			p.chunks = append(p.chunks, c)
			p.labels = append(p.labels, d.Name)
		}
	}
	return p, nil
}

func (a *Analyzer) planWindow(ctx context.Context, d corpus.MediaDescriptor, rng corpus.DateRange, question string, trend bool) (*plan, error) {
	recs, err := a.records(ctx, d, rng)
	if err != nil {
		return nil, err
	}

	b := chunk.Builder{
		Preamble:   windowHeader(question),
		Closing:    windowClosing(a.cfg.WordLimits.WindowMap, a.cfg.Language),
		MaxChars:   a.maxChars(),
		MinLetters: a.cfg.LetterFloors.Window,
	}

	closing := windowReduceClosing(a.cfg.WordLimits.WindowReduce, a.cfg.Language)
	if trend {
		closing = trendReduceClosing(a.cfg.Language)
	}
	return &plan{
		chunks: b.Build(recs),
		reduce: pipeline.ReducePlan{Header: windowReduceHeader(question), Closing: closing},
		pacing: a.cfg.Pacing.Window,
	}, nil
}

func (a *Analyzer) planIndividual(ctx context.Context, d corpus.MediaDescriptor, rng corpus.DateRange, req Request) (*plan, error) {
	if d.Kind != corpus.Group {
		return nil, fmt.Errorf("%w: media %d is a %s, sender analysis needs a group", ErrInvalidRequest, d.ID, d.Kind)
	}

	recs, err := a.records(ctx, d, rng)
	if err != nil {
		return nil, err
	}
	recs = corpus.FilterBySender(recs, req.SenderID)
	recs = sampleOrdered(recs, a.cfg.IndividualCap, a.orch.Config().Rand)

	b := chunk.Builder{
		Preamble: individualHeader(req.Question),
		Closing:  individualClosing(a.cfg.WordLimits.Individual, a.cfg.Language),
		MaxChars: a.maxChars(),
	}
	return &plan{
		chunks: b.Build(recs),
		reduce: pipeline.ReducePlan{
			Header:           individualReduceHeader(req.Question),
			Closing:          individualClosing(a.cfg.WordLimits.Individual, a.cfg.Language),
			SkipSingleReduce: true,
		},
		pacing: a.cfg.Pacing.Single,
	}, nil
}

// sampleOrdered keeps a uniform random subset of at most n records in their
// original order.
func sampleOrdered(recs []corpus.MessageRecord, n int, r *rand.Rand) []corpus.MessageRecord {
	if n <= 0 || len(recs) <= n {
		return recs
	}

	perm := rand.Perm
	if r != nil {
		perm = r.Perm
	}
	idx := perm(len(recs))[:n]
	slices.Sort(idx)

	out := make([]corpus.MessageRecord, n)
	for i, j := range idx {
		out[i] = recs[j]
	}
	return out
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
