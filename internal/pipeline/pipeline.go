// Package pipeline wires discovery, normalization, cohort selection and
// ordering into one call.
package pipeline

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/verte-zerg/spirecurve/internal/model"
	"github.com/verte-zerg/spirecurve/internal/runfile"
	"github.com/verte-zerg/spirecurve/internal/runs"
)

// Source lists and decodes run files.
type Source interface {
	List(root string) iter.Seq2[string, error]
	Parse(path string) (map[string]any, error)
}

// ErrorSink receives every skipped file. It must not retain err beyond the call.
type ErrorSink func(path string, err error)

// Result is the chronologically ordered cohort plus bookkeeping counts.
type Result struct {
	// All holds every normalized record, eligible or not, in discovery order.
	All        []model.RunRecord
	Cohort     []model.RunRecord
	Scanned    int
	Skipped    int
	Ineligible int
}

// Run scans cfg.RootPath and returns the sorted cohort. Per-file failures go
// to sink and are counted; only invalid configuration is returned as an error.
func Run(cfg model.PipelineConfig, src Source, sink ErrorSink) (Result, error) {
	if err := Validate(cfg); err != nil {
		return Result{}, err
	}
	if sink == nil {
		sink = func(string, error) {}
	}
	normalizer := runs.NewNormalizer(cfg)

	var res Result
	for path, err := range src.List(cfg.RootPath) {
		if err != nil {
			res.Skipped++
			sink(path, err)
			continue
		}
		res.Scanned++
		raw, err := src.Parse(path)
		if err != nil {
			res.Skipped++
			sink(path, err)
			continue
		}
		rec, err := normalizer.Normalize(raw)
		if err != nil {
			res.Skipped++
			sink(path, err)
			continue
		}
		res.All = append(res.All, rec)
	}
	res.Cohort = cohortOf(res.All, cfg)
	res.Ineligible = len(res.All) - len(res.Cohort)
	return res, nil
}

// Select re-derives victory and the floor bound under cfg for records that
// were normalized elsewhere, such as the run archive, then applies the cohort
// filter and chronological ordering. Records that no longer fit go to sink
// keyed by their id.
func Select(records []model.RunRecord, cfg model.PipelineConfig, sink ErrorSink) (Result, error) {
	if err := validateRules(cfg); err != nil {
		return Result{}, err
	}
	if sink == nil {
		sink = func(string, error) {}
	}
	normalizer := runs.NewNormalizer(cfg)

	res := Result{Scanned: len(records), All: make([]model.RunRecord, 0, len(records))}
	for _, r := range records {
		rec, err := normalizer.Rederive(r)
		if err != nil {
			res.Skipped++
			sink(r.ID, err)
			continue
		}
		res.All = append(res.All, rec)
	}
	res.Cohort = cohortOf(res.All, cfg)
	res.Ineligible = len(res.All) - len(res.Cohort)
	return res, nil
}

func cohortOf(records []model.RunRecord, cfg model.PipelineConfig) []model.RunRecord {
	return runs.SortChronological(runs.NewCohort(cfg).Filter(records))
}

// Validate checks the pipeline settings.
func Validate(cfg model.PipelineConfig) error {
	if cfg.RootPath == "" {
		return errors.New("runs directory is empty")
	}
	return validateRules(cfg)
}

func validateRules(cfg model.PipelineConfig) error {
	if cfg.MaxFloor < 1 {
		return fmt.Errorf("max floor must be >= 1, got %d", cfg.MaxFloor)
	}
	if cfg.MinFloor > cfg.MaxFloor {
		return fmt.Errorf("min floor %d exceeds max floor %d", cfg.MinFloor, cfg.MaxFloor)
	}
	if _, err := model.ParseVictoryDerivation(string(cfg.Victory)); err != nil {
		return err
	}
	return nil
}

// LogSink reports skipped files as structured warnings.
func LogSink(logger *slog.Logger) ErrorSink {
	return func(path string, err error) {
		logger.Warn("skipping run file", "path", path, "kind", kindOf(err), "error", err)
	}
}

var kindNames = map[error]string{
	runfile.ErrDiscovery: "discovery",
	runfile.ErrNotFound:  "not_found",
	runfile.ErrDecode:    "decode",
	runfile.ErrIO:        "io",
}

func kindOf(err error) string {
	if kind := runfile.KindOf(err); kind != nil {
		return kindNames[kind]
	}
	if errors.Is(err, runs.ErrMalformedRecord) {
		return "malformed"
	}
	return "other"
}
