package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/edgard/telellmgram/internal/analysis"
	"github.com/edgard/telellmgram/internal/corpus"
	"github.com/edgard/telellmgram/internal/database"
	"github.com/edgard/telellmgram/internal/llm"
	"github.com/edgard/telellmgram/internal/metrics"
	"github.com/edgard/telellmgram/internal/pipeline"
)

// components are the long-lived objects an analysis needs.
type components struct {
	index    *corpus.Index
	records  *corpus.CSVStore
	db       *sqlx.DB
	audit    database.Store
	registry *prometheus.Registry
	analyzer *analysis.Analyzer
}

// openCorpus loads the media index and a store over its tables.
func (c *cli) openCorpus() (*corpus.Index, *corpus.CSVStore, error) {
	index, err := corpus.LoadIndex(c.cfg.Corpus.IndexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load media index: %w", err)
	}
	c.log.Info("Media index loaded", "path", c.cfg.Corpus.IndexPath, "media", index.Len())
	return index, corpus.NewCSVStore(index, c.log), nil
}

// openAudit opens the audit database.
func (c *cli) openAudit() (*sqlx.DB, database.Store, error) {
	db, err := database.NewDB(c.cfg.Database.Path, c.log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit database %s: %w", c.cfg.Database.Path, err)
	}
	return db, database.NewStore(db, c.log), nil
}

// newComponents wires the corpus, the LLM backend, the audit database and the
// orchestrator into an Analyzer. Close releases them.
func (c *cli) newComponents(ctx context.Context) (*components, error) {
	index, records, err := c.openCorpus()
	if err != nil {
		return nil, err
	}

	completer, err := llm.NewCompleter(ctx, c.cfg.LLM, c.log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	db, audit, err := c.openAudit()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	instrumented := llm.NewInstrumented(completer, m, c.log)
	orch := pipeline.NewOrchestrator(instrumented, pipeline.Config{
		Concurrency:         c.cfg.Pipeline.Concurrency,
		MaxChars:            c.cfg.Pipeline.MaxChars,
		DevelopmentSampling: c.cfg.Pipeline.DevelopmentSampling,
		SampleCap:           c.cfg.Pipeline.SampleCap,
	}, audit, m, c.log)

	return &components{
		index:    index,
		records:  records,
		db:       db,
		audit:    audit,
		registry: registry,
		analyzer: analysis.NewAnalyzer(index, records, instrumented, orch, c.cfg.Analysis, c.log),
	}, nil
}

func (cp *components) Close(c *cli) {
	closeDB(c, cp.db)
}

func closeDB(c *cli, db *sqlx.DB) {
	database.CloseDB(db, c.log)
}
