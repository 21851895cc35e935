package surveilans

import (
	"context"
	"encoding/csv"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ErrNothingToMerge means not a single monthly extract exists for the
// requested range; no merged file is written.
var ErrNothingToMerge = errors.New("no monthly extracts found for range")

type MergeReport struct {
	Output  string
	Found   []Month
	Missing []Month
	Rows    int
}

// Consolidator concatenates the monthly extracts of one disease into a
// single file spanning a month range.
type Consolidator struct {
	store       *Store
	logger      Logger
	concurrency int
}

type consolidatorOptionFunc optionFunc[*Consolidator]

func WithConsolidatorLogger(logger Logger) consolidatorOptionFunc {
	return func(c *Consolidator) error {
		c.logger = logger
		return nil
	}
}

// WithReadConcurrency bounds how many monthly files are read at once.
func WithReadConcurrency(n int) consolidatorOptionFunc {
	return func(c *Consolidator) error {
		if n < 1 {
			return errInvalidAttempts
		}
		c.concurrency = n
		return nil
	}
}

func NewConsolidator(store *Store, opts ...consolidatorOptionFunc) (*Consolidator, error) {
	if store == nil {
		return nil, errMissingStore
	}
	c := &Consolidator{
		store:       store,
		logger:      newNopLogger(),
		concurrency: 4,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Merge reads every existing extract for identifier between start and end,
// in month order, and writes them as one file. Missing months are skipped
// and reported.
func (c *Consolidator) Merge(ctx context.Context, identifier string, start, end Month) (*MergeReport, error) {
	months, err := MonthRange(start, end)
	if err != nil {
		return nil, err
	}

	report := &MergeReport{}
	var paths []string
	for _, m := range months {
		path := c.store.Path(ExtractFileName(identifier, m))
		if !c.store.exists(path) {
			report.Missing = append(report.Missing, m)
			c.logger.Warn("Monthly extract not found, skipping", LogContext{"month": m.String(), "path": path})
			continue
		}
		report.Found = append(report.Found, m)
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		c.logger.Error("Merge cancelled: no monthly extracts found", LogContext{
			"identifier": identifier,
			"from":       start.String(),
			"to":         end.String(),
		})
		return report, ErrNothingToMerge
	}

	c.logger.Info("Merging monthly extracts", LogContext{"files": len(paths), "missing": len(report.Missing)})

	contents := make([][][]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := c.store.readExtract(path)
			if err != nil {
				return err
			}
			contents[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Output = c.store.Path(MergedFileName(identifier, start, end))
	err = c.store.writeFile(ctx, report.Output, func(w *csv.Writer) error {
		for _, rows := range contents {
			for _, row := range rows {
				if err := w.Write(row); err != nil {
					return err
				}
				report.Rows++
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	c.logger.Info("Merge complete", LogContext{"rows": report.Rows, "files": len(paths), "output": report.Output})
	return report, nil
}
