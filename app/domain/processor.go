// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/greenkube/greenkube-agent/app/config"
	"github.com/greenkube/greenkube-agent/app/data"
	"github.com/greenkube/greenkube-agent/app/types"
)

var (
	runsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processing_runs_total",
			Help: "Total number of completed processing runs.",
		},
		[]string{"outcome"},
	)
	samplesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usage_samples_processed_total",
			Help: "Total number of raw usage samples processed.",
		},
	)
	metricsCombined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metrics_combined_total",
			Help: "Total number of combined per-pod metrics produced.",
		},
	)
)

// Collectors bundles the data sources one processing run draws from. The run
// owns the bundle and closes every collector on every exit path.
type Collectors struct {
	Usage    types.UsageCollector
	Nodes    types.NodeCollector
	Costs    types.CostCollector
	Requests types.RequestCollector
}

// CollectorFactory builds a fresh collector bundle for one run.
type CollectorFactory func(ctx context.Context) (*Collectors, error)

// RunResult is the outcome of one processing run. Partial success is a
// first-class outcome: Errs lists the non-fatal failures encountered while
// Metrics holds everything that was still produced.
type RunResult struct {
	Metrics         []types.CombinedMetric
	Recommendations []types.Recommendation
	Errs            []error
}

// Processor orchestrates one accounting cycle: concurrent collection,
// historical node resolution, energy estimation, zone-grouped intensity
// resolution, combination, persistence, and analysis.
type Processor struct {
	settings    *config.Settings
	clock       types.TimeProvider
	catalog     *data.Catalog
	collectors  CollectorFactory
	estimator   types.EnergyEstimator
	provider    types.GridIntensityProvider
	nodes       types.NodeStore
	metrics     types.MetricStore
	intensities types.IntensityStore
	recommender *Recommender
}

func NewProcessor(
	settings *config.Settings,
	clock types.TimeProvider,
	catalog *data.Catalog,
	collectors CollectorFactory,
	estimator types.EnergyEstimator,
	provider types.GridIntensityProvider,
	nodes types.NodeStore,
	metrics types.MetricStore,
	intensities types.IntensityStore,
	recommender *Recommender,
) *Processor {
	return &Processor{
		settings:    settings,
		clock:       clock,
		catalog:     catalog,
		collectors:  collectors,
		estimator:   estimator,
		provider:    provider,
		nodes:       nodes,
		metrics:     metrics,
		intensities: intensities,
		recommender: recommender,
	}
}

// podSample is one usage sample aggregated from per-container rows to the
// pod, paired with the node context resolved for its timestamp.
type podSample struct {
	sample   types.RawUsageSample
	snapshot *types.NodeSnapshot
	energy   types.EnergyMetric
}

// Run executes one processing cycle over the window, optionally restricted
// to one namespace (empty means all). A usage-collection failure aborts the
// run with no persistence side effects; failures of the node, cost, or
// request sources degrade to defaults with the affected metrics flagged
// estimated. Cancellation propagates to every in-flight collector and store
// call, and a cancelled run persists nothing.
func (p *Processor) Run(ctx context.Context, window types.TimeWindow, namespace string) (*RunResult, error) {
	collected, err := p.collect(ctx, window, namespace)
	if err != nil {
		runsCompleted.With(prometheus.Labels{"outcome": "aborted"}).Inc()
		return nil, err
	}
	result := &RunResult{Errs: collected.errs}

	// a run cancelled during collection must leave no writes behind
	if err := ctx.Err(); err != nil {
		runsCompleted.With(prometheus.Labels{"outcome": "cancelled"}).Inc()
		return nil, err
	}

	if len(collected.nodeSnapshots) > 0 {
		if _, err := p.nodes.Save(ctx, collected.nodeSnapshots...); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("saving node snapshots failed")
			result.Errs = append(result.Errs, err)
		}
	}

	pods := p.estimateAll(ctx, collected.usage, result)
	samplesProcessed.Add(float64(len(collected.usage)))

	// the per-run intensity cache lives and dies with this call
	calc := NewCarbonCalculator(p.intensities, p.provider, p.catalog, p.settings.Defaults, p.settings.NormalizationGranularity())
	intensityByZone, err := p.prefetchIntensities(ctx, calc, pods, result)
	if err != nil {
		runsCompleted.With(prometheus.Labels{"outcome": "aborted"}).Inc()
		return nil, err
	}

	costsByPod := indexCosts(collected.costs)
	requestsByPod := indexRequests(collected.requests)

	for _, pod := range pods {
		metric := p.combine(calc, pod, intensityByZone, costsByPod, requestsByPod, collected)
		result.Metrics = append(result.Metrics, metric)
	}
	metricsCombined.Add(float64(len(result.Metrics)))

	// a cancelled run must leave no partial writes behind
	if err := ctx.Err(); err != nil {
		runsCompleted.With(prometheus.Labels{"outcome": "cancelled"}).Inc()
		return nil, err
	}

	if len(result.Metrics) > 0 {
		if err := p.metrics.Upsert(ctx, result.Metrics...); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("persisting combined metrics failed")
			result.Errs = append(result.Errs, err)
		}
	}

	result.Recommendations = p.recommender.Analyze(result.Metrics, window)

	outcome := "success"
	if len(result.Errs) > 0 {
		outcome = "partial"
	}
	runsCompleted.With(prometheus.Labels{"outcome": outcome}).Inc()
	log.Ctx(ctx).Info().
		Int("metrics", len(result.Metrics)).
		Int("recommendations", len(result.Recommendations)).
		Int("errors", len(result.Errs)).
		Msg("processing run complete")
	return result, nil
}

type collection struct {
	usage         []types.RawUsageSample
	nodeSnapshots []types.NodeSnapshot
	costs         []types.CostSample
	requests      []types.RequestSample

	costsFailed    bool
	requestsFailed bool

	mu   sync.Mutex
	errs []error
}

func (c *collection) degrade(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

// collect fans out to the four collectors concurrently and joins them. Only
// the usage source is load-bearing; the others degrade.
func (p *Processor) collect(ctx context.Context, window types.TimeWindow, namespace string) (*collection, error) {
	bundle, err := p.collectors(ctx)
	if err != nil {
		return nil, errors.Wrap(types.ErrSourceUnavailable, err.Error())
	}
	defer p.closeAll(ctx, bundle)

	out := &collection{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		samples, err := bundle.Usage.Fetch(gctx, window)
		if err != nil {
			return errors.Wrapf(types.ErrSourceUnavailable, "usage collector: %s", err.Error())
		}
		out.usage = filterNamespace(samples, namespace)
		return nil
	})
	g.Go(func() error {
		snapshots, err := bundle.Nodes.Fetch(gctx, window)
		if err != nil {
			log.Ctx(gctx).Warn().Err(err).Msg("node collector failed, degrading to stored history")
			out.degrade(errors.Wrapf(types.ErrSourceUnavailable, "node collector: %s", err.Error()))
			return nil
		}
		out.nodeSnapshots = snapshots
		return nil
	})
	g.Go(func() error {
		costs, err := bundle.Costs.Fetch(gctx, window)
		if err != nil {
			log.Ctx(gctx).Warn().Err(err).Msg("cost collector failed, metrics will carry no cost")
			out.costsFailed = true
			out.degrade(errors.Wrapf(types.ErrSourceUnavailable, "cost collector: %s", err.Error()))
			return nil
		}
		out.costs = costs
		return nil
	})
	g.Go(func() error {
		requests, err := bundle.Requests.Fetch(gctx, window)
		if err != nil {
			log.Ctx(gctx).Warn().Err(err).Msg("request collector failed, metrics will carry no requests")
			out.requestsFailed = true
			out.degrade(errors.Wrapf(types.ErrSourceUnavailable, "request collector: %s", err.Error()))
			return nil
		}
		out.requests = requests
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(out.usage) == 0 {
		return nil, errors.Wrap(types.ErrSourceUnavailable, "no usage samples in window")
	}
	return out, nil
}

func filterNamespace(samples []types.RawUsageSample, ns string) []types.RawUsageSample {
	if ns == "" {
		return samples
	}
	filtered := samples[:0]
	for _, s := range samples {
		if s.Namespace == ns {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// estimateAll aggregates per-container samples to pods, resolves each pod's
// node as it existed at the sample timestamp, and estimates energy.
func (p *Processor) estimateAll(ctx context.Context, samples []types.RawUsageSample, result *RunResult) []*podSample {
	pods := aggregateByPod(samples)

	for _, pod := range pods {
		snapshot, prov, err := p.resolveNode(ctx, pod.sample)
		if err != nil {
			result.Errs = append(result.Errs, err)
		}
		pod.snapshot = snapshot
		pod.energy = p.estimator.Estimate(pod.sample, snapshot)
		pod.energy.Provenance.Merge(prov)
	}
	return pods
}

// resolveNode reconstructs the node as-of the sample timestamp. With no
// historical row the current snapshot serves, flagged; with no node data at
// all the estimator's default profile path takes over.
func (p *Processor) resolveNode(ctx context.Context, sample types.RawUsageSample) (*types.NodeSnapshot, types.Provenance, error) {
	var prov types.Provenance
	if sample.NodeName == "" {
		return nil, prov, nil
	}

	snapshot, err := p.nodes.AsOf(ctx, sample.NodeName, sample.Timestamp)
	if err != nil {
		return nil, prov, errors.Wrapf(err, "node history for %s", sample.NodeName)
	}
	if snapshot != nil {
		return snapshot, prov, nil
	}

	snapshot, err = p.nodes.Current(ctx, sample.NodeName)
	if err != nil {
		return nil, prov, errors.Wrapf(err, "current node %s", sample.NodeName)
	}
	if snapshot != nil {
		prov.Flag(types.ReasonStaleNodeData)
		return snapshot, prov, nil
	}
	return nil, prov, nil
}

// aggregateByPod sums container rows into one sample per (namespace, pod,
// timestamp); the pod's node comes from the first row seen.
func aggregateByPod(samples []types.RawUsageSample) []*podSample {
	type podKey struct {
		namespace string
		pod       string
		ts        int64
	}
	index := make(map[podKey]*podSample)
	order := make([]*podSample, 0, len(samples))

	for _, s := range samples {
		s.Timestamp = types.NormalizeTimestamp(s.Timestamp)
		key := podKey{namespace: s.Namespace, pod: s.Pod, ts: s.Timestamp.Unix()}

		if existing, ok := index[key]; ok {
			existing.sample.CPURateCores += s.CPURateCores
			existing.sample.MemoryUsageBytes += s.MemoryUsageBytes
			if existing.sample.NodeName == "" {
				existing.sample.NodeName = s.NodeName
			}
			continue
		}

		s.Container = ""
		ps := &podSample{sample: s}
		index[key] = ps
		order = append(order, ps)
	}
	return order
}

// prefetchIntensities resolves one intensity per distinct (zone, bucket)
// before any per-pod calculation, using the maximum timestamp in each group
// as the representative instant. Distinct zones resolve concurrently; a
// zone whose resolution fails falls back to the configured default and is
// reported as a non-fatal error. Only cancellation aborts.
func (p *Processor) prefetchIntensities(ctx context.Context, calc *CarbonCalculator, pods []*podSample, result *RunResult) (map[string]IntensityResult, error) {
	representative := make(map[string]types.EnergyMetric)
	for _, pod := range pods {
		zone := pod.energy.Zone
		if current, ok := representative[zone]; !ok || pod.energy.Timestamp.After(current.Timestamp) {
			representative[zone] = pod.energy
		}
	}

	var mu sync.Mutex
	byZone := make(map[string]IntensityResult, len(representative))
	g, gctx := errgroup.WithContext(ctx)

	for zone, repr := range representative {
		g.Go(func() error {
			res, err := calc.Intensity(gctx, zone, repr.Timestamp)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Ctx(gctx).Warn().Err(err).Str("zone", zone).Msg("intensity resolution failed, using default")
				res = IntensityResult{GCO2ePerKWh: p.settings.Defaults.IntensityGPerKW}
				res.Provenance.Flag(types.ReasonDefaultIntensity)
				mu.Lock()
				result.Errs = append(result.Errs, errors.Wrapf(err, "intensity for zone %s", zone))
				mu.Unlock()
			}
			mu.Lock()
			byZone[zone] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return byZone, nil
}

type podRef struct {
	namespace string
	pod       string
}

func indexCosts(costs []types.CostSample) map[podRef]types.CostSample {
	m := make(map[podRef]types.CostSample, len(costs))
	for _, c := range costs {
		m[podRef{namespace: c.Namespace, pod: c.Pod}] = c
	}
	return m
}

func indexRequests(requests []types.RequestSample) map[podRef]types.RequestSample {
	m := make(map[podRef]types.RequestSample, len(requests))
	for _, r := range requests {
		m[podRef{namespace: r.Namespace, pod: r.Pod}] = r
	}
	return m
}

// combine folds one pod's energy, intensity, cost, and request data into the
// persisted record, unioning provenance from every contributing source.
func (p *Processor) combine(
	calc *CarbonCalculator,
	pod *podSample,
	intensityByZone map[string]IntensityResult,
	costsByPod map[podRef]types.CostSample,
	requestsByPod map[podRef]types.RequestSample,
	collected *collection,
) types.CombinedMetric {
	prov := pod.energy.Provenance

	intensity := intensityByZone[pod.energy.Zone]
	prov.Merge(intensity.Provenance)

	co2e := calc.Emissions(pod.energy.Joules, intensity.GCO2ePerKWh, pod.energy.PUE)
	embodied := calc.Embodied(pod.snapshot, pod.sample.CPURateCores, p.settings.Processing.SampleStep)

	metric := types.CombinedMetric{
		Pod:                pod.energy.Pod,
		Namespace:          pod.energy.Namespace,
		Timestamp:          pod.energy.Timestamp,
		Joules:             types.Float64(pod.energy.Joules),
		CO2eGrams:          types.Float64(co2e),
		EmbodiedCO2eGrams:  types.Float64(embodied),
		GridIntensity:      types.Float64(intensity.GCO2ePerKWh),
		PUE:                types.Float64(pod.energy.PUE),
		CPUUsageMillicores: types.Float64(pod.sample.CPURateCores * 1000),
	}
	if pod.sample.MemoryUsageBytes > 0 {
		metric.MemoryUsageBytes = types.Int64(pod.sample.MemoryUsageBytes)
	}

	ref := podRef{namespace: pod.energy.Namespace, pod: pod.energy.Pod}
	if cost, ok := costsByPod[ref]; ok && !collected.costsFailed {
		metric.TotalCost = types.Float64(cost.TotalCost)
	} else {
		prov.Flag(types.ReasonCostUnavailable)
	}
	if req, ok := requestsByPod[ref]; ok && !collected.requestsFailed {
		metric.CPURequestMillicores = types.Float64(req.CPURequestMillicores)
		if req.MemoryRequestBytes > 0 {
			metric.MemoryRequestBytes = types.Int64(req.MemoryRequestBytes)
		}
	}

	metric.IsEstimated = prov.Estimated
	metric.EstimationReasons = prov.Reasons
	return metric
}

func (p *Processor) closeAll(ctx context.Context, bundle *Collectors) {
	for name, c := range map[string]interface{ Close() error }{
		"usage":    bundle.Usage,
		"nodes":    bundle.Nodes,
		"costs":    bundle.Costs,
		"requests": bundle.Requests,
	} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("collector", name).Msg("collector close failed")
		}
	}
}
