// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package repo provides the SQL implementations of the metric, node, and
// intensity stores. One codebase serves both the SQLite and PostgreSQL
// backends through their gorm dialects.
package repo

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/greenkube/greenkube-agent/app/storage/core"
	"github.com/greenkube/greenkube-agent/app/types"
)

var (
	storageStatsOnce     sync.Once
	StorageWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_write_failure_total",
			Help: "Total number of storage write failures.",
		},
		[]string{"store", "action"},
	)
)

// RetryPolicy bounds the attempts made when concurrent writes race on the
// same key before the failure is surfaced for that key.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryPolicy matches the database configuration defaults.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, Backoff: 100 * time.Millisecond}

type metricRepoImpl struct {
	core.BaseRepoImpl
	clock types.TimeProvider
	retry RetryPolicy
}

// NewMetricRepository creates the SQL-backed metric store and migrates its
// schema.
func NewMetricRepository(clock types.TimeProvider, db *gorm.DB, retry RetryPolicy) (types.MetricStore, error) {
	storageStatsOnce.Do(func() {
		prometheus.MustRegister(StorageWriteFailures)
	})

	if err := db.AutoMigrate(&types.CombinedMetric{}); err != nil {
		return nil, core.TranslateError(err)
	}
	if retry.MaxRetries <= 0 {
		retry = DefaultRetryPolicy
	}

	return &metricRepoImpl{
		BaseRepoImpl: core.NewBaseRepoImpl(db, &types.CombinedMetric{}),
		clock:        clock,
		retry:        retry,
	}, nil
}

// Upsert writes the batch idempotently, one row per (pod, namespace,
// timestamp). Conflicts merge column-wise inside a transaction: measures the
// incoming record does not carry keep their stored values, and estimation
// reasons are set-unioned. A key whose write keeps failing is reported
// without affecting the rest of the batch.
func (r *metricRepoImpl) Upsert(ctx context.Context, metrics ...types.CombinedMetric) error {
	var failed []error
	for i := range metrics {
		incoming := metrics[i]
		incoming.Timestamp = types.NormalizeTimestamp(incoming.Timestamp)

		if err := r.upsertOne(ctx, &incoming); err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("pod", incoming.Pod).
				Str("namespace", incoming.Namespace).
				Msg("storage write upsert failure")
			StorageWriteFailures.With(prometheus.Labels{"store": "metric", "action": "upsert"}).Inc()
			failed = append(failed, errors.Wrapf(err, "upsert %s/%s", incoming.Namespace, incoming.Pod))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %w", types.ErrPersistenceFailure, stderrors.Join(failed...))
	}
	return nil
}

func (r *metricRepoImpl) upsertOne(ctx context.Context, incoming *types.CombinedMetric) error {
	var lastErr error
	for attempt := 0; attempt <= r.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.retry.Backoff * time.Duration(attempt)):
			}
		}

		err := r.Tx(ctx, func(ctxTx context.Context) error {
			var existing types.CombinedMetric
			err := r.DB(ctxTx).
				Where("pod = ? AND namespace = ? AND timestamp = ?",
					incoming.Pod, incoming.Namespace, incoming.Timestamp).
				First(&existing).Error

			switch {
			case err == nil:
				existing.Merge(incoming)
				existing.RecordUpdated = r.clock.GetCurrentTime()
				return core.TranslateError(r.DB(ctxTx).Save(&existing).Error)

			case stderrors.Is(core.TranslateError(err), types.ErrNotFound):
				row := *incoming
				row.ID = core.NewID()
				now := r.clock.GetCurrentTime()
				row.RecordCreated, row.RecordUpdated = now, now
				// normalize reason bookkeeping on first write too
				var prov types.Provenance
				prov.MergeReasons(row.EstimationReasons)
				row.EstimationReasons = prov.Reasons
				row.IsEstimated = prov.Estimated
				return core.TranslateError(r.DB(ctxTx).Create(&row).Error)

			default:
				return core.TranslateError(err)
			}
		})
		if err == nil {
			return nil
		}
		// a concurrent writer inserted the row between our read and write;
		// the next attempt takes the merge path
		if stderrors.Is(err, types.ErrDuplicateKey) {
			lastErr = err
			continue
		}
		return err
	}
	return errors.Wrap(types.ErrStoreConflict, lastErr.Error())
}

func (r *metricRepoImpl) scoped(ctx context.Context, filters types.MetricFilters, window types.TimeWindow) *gorm.DB {
	q := r.DB(ctx).Model(&types.CombinedMetric{}).
		Where("timestamp >= ? AND timestamp < ?",
			types.NormalizeTimestamp(window.Start), types.NormalizeTimestamp(window.End))
	if filters.Namespace != "" {
		q = q.Where("namespace = ?", filters.Namespace)
	}
	if filters.Pod != "" {
		q = q.Where("pod = ?", filters.Pod)
	}
	return q
}

func (r *metricRepoImpl) Query(ctx context.Context, filters types.MetricFilters, window types.TimeWindow) ([]types.CombinedMetric, error) {
	var metrics []types.CombinedMetric
	err := r.scoped(ctx, filters, window).
		Order("timestamp ASC, namespace ASC, pod ASC").
		Find(&metrics).Error
	if err != nil {
		return nil, core.TranslateError(err)
	}
	return metrics, nil
}

func (r *metricRepoImpl) Summary(ctx context.Context, filters types.MetricFilters, window types.TimeWindow) (*types.Summary, error) {
	metrics, err := r.Query(ctx, filters, window)
	if err != nil {
		return nil, err
	}
	return types.Summarize(metrics), nil
}

func (r *metricRepoImpl) Timeseries(ctx context.Context, filters types.MetricFilters, window types.TimeWindow, granularity types.Granularity) ([]types.TimeseriesPoint, error) {
	metrics, err := r.Query(ctx, filters, window)
	if err != nil {
		return nil, err
	}
	return types.BucketSeries(metrics, granularity), nil
}

func (r *metricRepoImpl) Namespaces(ctx context.Context) ([]string, error) {
	var namespaces []string
	err := r.DB(ctx).Model(&types.CombinedMetric{}).
		Distinct("namespace").
		Order("namespace ASC").
		Pluck("namespace", &namespaces).Error
	if err != nil {
		return nil, core.TranslateError(err)
	}
	return namespaces, nil
}
