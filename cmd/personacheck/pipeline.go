package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/c360studio/personacheck/config"
	"github.com/c360studio/personacheck/metrics"
	"github.com/c360studio/personacheck/output/report"
	reportpublisher "github.com/c360studio/personacheck/processor/report-publisher"
	"github.com/c360studio/personacheck/source"
	"github.com/c360studio/personacheck/source/parser"
	"github.com/c360studio/personacheck/validation"
)

// pipeline runs load, validate and the configured outputs. It is reused
// across runs in watch mode, so metrics accumulate.
type pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
	metrics   *metrics.Collector
	writer    *report.Writer
	publisher *reportpublisher.Publisher
}

func newPipeline(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (*pipeline, error) {
	p := &pipeline{
		cfg:     cfg,
		logger:  logger,
		out:     out,
		metrics: metrics.NewCollector(),
	}
	if cfg.Report.OutDir != "" {
		p.writer = report.NewWriter(cfg.Report.OutDir, logger)
	}
	if cfg.NATS.URL != "" {
		pub, err := reportpublisher.Connect(ctx, cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			return nil, err
		}
		p.publisher = pub
	}
	return p, nil
}

// Close releases the NATS connection, if any.
func (p *pipeline) Close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
}

// run performs one validation run. A missing content root is returned
// as-is; otherwise the report is rendered and the error is the validator's,
// joined with any output failure.
func (p *pipeline) run(ctx context.Context) (*validation.Report, error) {
	started := time.Now()

	registry := parser.NewRegistry(p.cfg.Extractor())
	loader := source.NewLoader(p.cfg.LoaderConfig(), registry, p.logger)
	set, err := loader.Load(ctx, p.cfg.Content.Root)
	if err != nil {
		return nil, err
	}
	p.metrics.ObserveLoad(set)

	validator := validation.NewValidator(p.cfg.ValidatorConfig(), p.logger)
	rep, verr := validator.Validate(ctx, set, p.cfg.Rules)
	duration := time.Since(started)
	p.metrics.ObserveReport(rep, verr, duration, time.Now())

	if rep != nil {
		if err := p.render(rep); err != nil {
			return rep, errors.Join(verr, fmt.Errorf("render report: %w", err))
		}
	}

	summary := report.NewSummary(p.cfg.Content.Root, set.Len(), rep, verr, metrics.Outcome(rep, verr), started, duration)
	p.logger.Info("Validation run finished",
		"run_id", summary.RunID,
		"outcome", summary.Outcome,
		"checks", summary.Checks,
		"failed", summary.Failed,
		"warnings", summary.Warnings,
		"duration", duration)

	return rep, errors.Join(verr, p.emit(ctx, summary, rep))
}

func (p *pipeline) render(rep *validation.Report) error {
	if p.cfg.Report.Format == config.FormatJSON {
		return report.RenderJSON(p.out, rep)
	}
	return report.RenderText(p.out, rep)
}

// emit writes artifacts, the metrics textfile and the NATS message. Every
// output is attempted even when an earlier one fails.
func (p *pipeline) emit(ctx context.Context, summary *report.Summary, rep *validation.Report) error {
	var errs []error

	if p.writer != nil {
		dir, err := p.writer.Write(summary, rep)
		if err != nil {
			errs = append(errs, fmt.Errorf("write artifacts: %w", err))
		} else {
			p.logger.Info("Wrote run artifacts", "dir", dir)
		}
	}

	if p.cfg.Metrics.Textfile != "" {
		if err := p.metrics.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		}
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, summary, rep); err != nil {
			errs = append(errs, err)
		}
	}

	for _, err := range errs {
		p.logger.Error("Output failed", "error", err)
	}
	return errors.Join(errs...)
}
