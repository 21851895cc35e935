package surveilans

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Params selects what a harvest run collects.
type Params struct {
	DiseaseCode string
	DiseaseName string
	From        Month
	To          Month
}

type SkippedQuery struct {
	Key    QueryKey
	Reason string
}

// MonthReport is the outcome of one month of the crawl. Path is empty when
// no records were found and nothing was written.
type MonthReport struct {
	Month            Month
	Queries          int
	Rows             int
	Path             string
	Skipped          []SkippedQuery
	SkippedRegencies []Regency
}

func (r MonthReport) Empty() bool { return r.Rows == 0 }

type Summary struct {
	RunID  string
	Months []MonthReport
}

// Harvester walks the full cross product of regency, district, status, age
// group and sex for every month, one request at a time, and hands each
// month's tidy records to the sink.
type Harvester struct {
	ID   string
	Name string

	portal  *Portal
	sink    ExtractSink
	logger  Logger
	metrics *Metrics

	regencies []Regency
	statuses  []Status
	ageGroups []AgeGroup
	sexes     []Sex
}

func NewHarvester(portal *Portal, sink ExtractSink, opts ...Option) (*Harvester, error) {
	if portal == nil {
		return nil, errMissingPortal
	}
	if sink == nil {
		return nil, errMissingStore
	}

	h := &Harvester{
		ID:        uuid.NewString(),
		Name:      "harvester",
		portal:    portal,
		sink:      sink,
		logger:    newNopLogger(),
		regencies: Regencies(),
		statuses:  Statuses(),
		ageGroups: AgeGroups(),
		sexes:     Sexes(),
	}

	for _, opt := range opts {
		if err := opt.apply(h); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// Run harvests every month of the range. Only a failed handshake, a failed
// extract write or a cancelled context stop it; everything else is logged
// and skipped.
func (h *Harvester) Run(ctx context.Context, p Params) (*Summary, error) {
	months, err := MonthRange(p.From, p.To)
	if err != nil {
		return nil, err
	}
	if p.DiseaseCode == "" {
		return nil, fmt.Errorf("disease code is required")
	}

	identifier := SafeIdentifier(p.DiseaseName)
	h.logger.Info("Starting harvest", LogContext{
		"runID":   h.ID,
		"disease": p.DiseaseCode,
		"name":    p.DiseaseName,
		"from":    p.From.String(),
		"to":      p.To.String(),
	})

	if _, err := h.portal.Handshake(ctx); err != nil {
		h.logger.Error("Failed to initialize session", LogContext{"err": err.Error()})
		return nil, err
	}

	summary := &Summary{RunID: h.ID}
	for _, m := range months {
		report, err := h.harvestMonth(ctx, p.DiseaseCode, identifier, m)
		summary.Months = append(summary.Months, report)
		if err != nil {
			return summary, err
		}
	}

	return summary, nil
}

func (h *Harvester) harvestMonth(ctx context.Context, disease, identifier string, m Month) (MonthReport, error) {
	report := MonthReport{Month: m}
	var records []Record

	h.logger.Info("Processing month", LogContext{"month": m.Label()})

	for _, regency := range h.regencies {
		districts, ok, err := h.districts(ctx, regency)
		if err != nil {
			return report, err
		}
		if !ok {
			report.SkippedRegencies = append(report.SkippedRegencies, regency)
			h.metrics.skippedRegency()
			continue
		}

		for _, district := range districts {
			h.logger.Info("Processing district", LogContext{
				"month":    m.String(),
				"regency":  regency.Label(),
				"district": district.Name,
			})

			for _, status := range h.statuses {
				for _, age := range h.ageGroups {
					for _, sex := range h.sexes {
						key := QueryKey{
							Disease: disease,
							Month:   m,
							Stratum: Stratum{
								Regency:  regency,
								District: district,
								Status:   status,
								AgeGroup: age,
								Sex:      sex,
							},
						}

						report.Queries++
						got, reason, err := h.collect(ctx, key)
						if err != nil {
							return report, err
						}
						if reason != "" {
							report.Skipped = append(report.Skipped, SkippedQuery{Key: key, Reason: reason})
							continue
						}
						records = append(records, got...)
					}
				}
			}
		}
	}

	if len(report.Skipped) > 0 {
		h.logger.Warn("Some combinations were skipped", LogContext{
			"month":   m.String(),
			"skipped": skippedKeys(report.Skipped),
		})
	}

	if len(records) == 0 {
		h.metrics.month(false)
		h.logger.Info("No data was found", LogContext{"month": m.Label(), "queries": report.Queries})
		return report, nil
	}

	path, err := h.sink.WriteMonth(ctx, identifier, m, records)
	if err != nil {
		h.logger.Error("Failed to write monthly extract", LogContext{"month": m.String(), "err": err.Error()})
		return report, err
	}

	report.Rows = len(records)
	report.Path = path
	h.metrics.month(true)
	h.logger.Info("Monthly extract written", LogContext{"month": m.Label(), "rows": report.Rows, "path": path})

	return report, nil
}

// districts primes the session for regency and lists its districts. ok is
// false when the regency has to be skipped this month; err is only set for
// a cancelled context.
func (h *Harvester) districts(ctx context.Context, regency Regency) ([]District, bool, error) {
	logCtx := LogContext{"regency": regency.Label()}

	primed, err := h.portal.Prime(ctx, regency)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		logCtx["err"] = err.Error()
		h.logger.Warn("Failed to prime regency, skipping", logCtx)
		return nil, false, nil
	}

	districts, err := primed.Districts(ctx)
	switch {
	case ctx.Err() != nil:
		return nil, false, ctx.Err()
	case errors.Is(err, ErrNoSubregions):
		h.logger.Warn("District list response carried no options, skipping regency", logCtx)
		return nil, false, nil
	case err != nil:
		logCtx["err"] = err.Error()
		h.logger.Warn("Failed to list districts, skipping regency", logCtx)
		return nil, false, nil
	case len(districts) == 0:
		h.logger.Warn("Regency has no districts, skipping", logCtx)
		return nil, false, nil
	}

	return districts, true, nil
}

// collect runs one query key through query, extraction and reshape. A
// non-empty reason means the key was skipped.
func (h *Harvester) collect(ctx context.Context, key QueryKey) ([]Record, string, error) {
	resp, err := h.portal.Query(ctx, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}

		logCtx := key.logContext()
		logCtx["err"] = err.Error()

		var statusErr *HTTPStatusError
		switch {
		case errors.Is(err, ErrNoResponse):
			h.metrics.query(OutcomeFailed)
			h.logger.Warn("Failed to fetch data for this combination, skipping", logCtx)
			return nil, "no response", nil
		case errors.As(err, &statusErr):
			h.metrics.query(OutcomeRejected)
			h.logger.Warn("Query rejected, skipping", logCtx)
			return nil, fmt.Sprintf("status %d", statusErr.StatusCode), nil
		default:
			h.metrics.query(OutcomeFailed)
			h.logger.Warn("Query failed, skipping", logCtx)
			return nil, err.Error(), nil
		}
	}

	table, ok := ExtractTable(resp.Document())
	if !ok {
		h.metrics.query(OutcomeEmpty)
		return nil, "", nil
	}

	records, dropped := reshape(table, key.Month, key.Stratum)
	if len(dropped) > 0 {
		h.logger.Debug("Dropped unparseable cells", LogContext{"key": key.String(), "cells": len(dropped)})
	}

	h.metrics.query(OutcomeOK)
	h.metrics.recorded(len(records))
	return records, "", nil
}

func skippedKeys(skipped []SkippedQuery) []string {
	out := make([]string, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, s.Key.String()+": "+s.Reason)
	}
	return out
}
