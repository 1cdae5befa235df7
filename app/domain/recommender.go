// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/greenkube/greenkube-agent/app/config"
	"github.com/greenkube/greenkube-agent/app/types"
)

// Recommender analyzes a window of combined metrics and emits optimization
// findings. Every threshold is deployment-tunable through configuration.
//
// Pods whose metrics were estimated for lack of node data are skipped: a
// finding synthesized from default profiles would not be actionable.
type Recommender struct {
	cfg config.Recommender
}

func NewRecommender(cfg config.Recommender) *Recommender {
	return &Recommender{cfg: cfg}
}

// podHistory is one pod's metrics across the window, ordered by timestamp.
type podHistory struct {
	namespace string
	pod       string
	rows      []types.CombinedMetric
}

// Analyze inspects the window and returns findings ordered by namespace then
// pod. At most one CPU finding (zombie or rightsizing) is emitted per pod.
func (r *Recommender) Analyze(metrics []types.CombinedMetric, window types.TimeWindow) []types.Recommendation {
	histories := groupByPod(metrics)

	var findings []types.Recommendation
	for _, h := range histories {
		if h.lacksNodeData() {
			continue
		}
		if rec := r.analyzeCPU(h, window); rec != nil {
			findings = append(findings, *rec)
		}
		if rec := r.analyzeMemory(h); rec != nil {
			findings = append(findings, *rec)
		}
	}
	findings = append(findings, r.analyzeNamespaces(histories)...)

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Namespace != findings[j].Namespace {
			return findings[i].Namespace < findings[j].Namespace
		}
		return findings[i].Pod < findings[j].Pod
	})
	return findings
}

// analyzeCPU emits a ZombiePod finding when the pod barely uses its request
// but keeps accruing cost or carbon, or a CpuRightsizing finding when usage
// stays under the rightsizing ratio for every sample of the window.
func (r *Recommender) analyzeCPU(h *podHistory, window types.TimeWindow) *types.Recommendation {
	request := h.latestCPURequest()
	if request <= 0 {
		return nil
	}
	if h.observedAge() < r.cfg.MinPodAge {
		return nil
	}

	avg, peak, samples := h.cpuUsage()
	if samples == 0 {
		return nil
	}
	utilization := avg / request

	cost, co2e := h.accumulated()
	if utilization < r.cfg.LowUtilization && (cost > r.cfg.CostNoiseFloor || co2e > r.cfg.CO2eNoiseFloor) {
		return &types.Recommendation{
			Pod:       h.pod,
			Namespace: h.namespace,
			Type:      types.RecommendationZombiePod,
			Reason: fmt.Sprintf(
				"average CPU usage %.1fm is %.1f%% of the %.0fm request over %s; the pod keeps accruing cost and carbon while doing nearly nothing",
				avg, utilization*100, request, window.Duration()),
			PotentialSavingsCost:        cost,
			PotentialSavingsCO2eGrams:   co2e,
			CurrentCPURequestMillicores: request,
		}
	}

	if h.sustainedBelow(request, r.cfg.RightsizingRatio) {
		recommended := peak * r.cfg.SafetyMargin
		if recommended < r.cfg.MinCPUMillicores {
			recommended = r.cfg.MinCPUMillicores
		}
		if recommended >= request {
			return nil
		}
		reduction := 1 - recommended/request
		return &types.Recommendation{
			Pod:       h.pod,
			Namespace: h.namespace,
			Type:      types.RecommendationCPURightsizing,
			Reason: fmt.Sprintf(
				"CPU usage stayed below %.0f%% of the %.0fm request for the whole window; peak was %.1fm",
				r.cfg.RightsizingRatio*100, request, peak),
			PotentialSavingsCost:            cost * reduction,
			PotentialSavingsCO2eGrams:       co2e * reduction,
			CurrentCPURequestMillicores:     request,
			RecommendedCPURequestMillicores: recommended,
		}
	}
	return nil
}

// analyzeMemory mirrors CPU rightsizing for memory requests.
func (r *Recommender) analyzeMemory(h *podHistory) *types.Recommendation {
	request := h.latestMemoryRequest()
	if request <= 0 {
		return nil
	}
	if h.observedAge() < r.cfg.MinPodAge {
		return nil
	}

	peak := int64(0)
	samples := 0
	sustained := true
	for _, m := range h.rows {
		if m.MemoryUsageBytes == nil {
			continue
		}
		usage := *m.MemoryUsageBytes
		samples++
		if usage > peak {
			peak = usage
		}
		if float64(usage) >= r.cfg.RightsizingRatio*float64(request) {
			sustained = false
		}
	}
	if samples == 0 || !sustained {
		return nil
	}

	recommended := int64(float64(peak) * r.cfg.SafetyMargin)
	if recommended < r.cfg.MinMemoryBytes {
		recommended = r.cfg.MinMemoryBytes
	}
	if recommended >= request {
		return nil
	}
	return &types.Recommendation{
		Pod:       h.pod,
		Namespace: h.namespace,
		Type:      types.RecommendationMemoryRightsizing,
		Reason: fmt.Sprintf(
			"memory usage stayed below %.0f%% of the %d byte request for the whole window; peak was %d bytes",
			r.cfg.RightsizingRatio*100, request, peak),
		CurrentMemoryRequestBytes:     request,
		RecommendedMemoryRequestBytes: recommended,
	}
}

// analyzeNamespaces flags namespaces whose aggregate utilization is below the
// idle threshold across every pod that declares a request.
func (r *Recommender) analyzeNamespaces(histories []*podHistory) []types.Recommendation {
	type nsAgg struct {
		usage   float64
		request float64
		cost    float64
		co2e    float64
		pods    int
	}
	aggregates := make(map[string]*nsAgg)
	order := make([]string, 0)

	for _, h := range histories {
		if h.lacksNodeData() {
			continue
		}
		request := h.latestCPURequest()
		if request <= 0 {
			continue
		}
		avg, _, samples := h.cpuUsage()
		if samples == 0 {
			continue
		}

		agg, ok := aggregates[h.namespace]
		if !ok {
			agg = &nsAgg{}
			aggregates[h.namespace] = agg
			order = append(order, h.namespace)
		}
		cost, co2e := h.accumulated()
		agg.usage += avg
		agg.request += request
		agg.cost += cost
		agg.co2e += co2e
		agg.pods++
	}

	var findings []types.Recommendation
	for _, ns := range order {
		agg := aggregates[ns]
		if agg.pods < 2 || agg.request <= 0 {
			continue
		}
		if agg.usage/agg.request >= r.cfg.IdleNamespaceRatio {
			continue
		}
		findings = append(findings, types.Recommendation{
			Namespace: ns,
			Type:      types.RecommendationIdleNamespace,
			Reason: fmt.Sprintf(
				"all %d pods together use %.1fm of %.0fm requested CPU; the namespace looks abandoned",
				agg.pods, agg.usage, agg.request),
			PotentialSavingsCost:      agg.cost,
			PotentialSavingsCO2eGrams: agg.co2e,
		})
	}
	return findings
}

func groupByPod(metrics []types.CombinedMetric) []*podHistory {
	index := make(map[podRef]*podHistory)
	order := make([]*podHistory, 0)

	for _, m := range metrics {
		ref := podRef{namespace: m.Namespace, pod: m.Pod}
		h, ok := index[ref]
		if !ok {
			h = &podHistory{namespace: m.Namespace, pod: m.Pod}
			index[ref] = h
			order = append(order, h)
		}
		h.rows = append(h.rows, m)
	}
	for _, h := range order {
		sort.Slice(h.rows, func(i, j int) bool {
			return h.rows[i].Timestamp.Before(h.rows[j].Timestamp)
		})
	}
	return order
}

// lacksNodeData reports whether any row was estimated because node data was
// missing entirely; such pods carry synthetic figures.
func (h *podHistory) lacksNodeData() bool {
	for _, m := range h.rows {
		for _, reason := range m.EstimationReasons {
			if reason == types.ReasonNoNodeData {
				return true
			}
		}
	}
	return false
}

// observedAge is the span between the pod's first and last sample.
func (h *podHistory) observedAge() time.Duration {
	if len(h.rows) < 2 {
		return 0
	}
	return h.rows[len(h.rows)-1].Timestamp.Sub(h.rows[0].Timestamp)
}

func (h *podHistory) cpuUsage() (avg, peak float64, samples int) {
	sum := 0.0
	for _, m := range h.rows {
		if m.CPUUsageMillicores == nil {
			continue
		}
		usage := *m.CPUUsageMillicores
		sum += usage
		if usage > peak {
			peak = usage
		}
		samples++
	}
	if samples == 0 {
		return 0, 0, 0
	}
	return sum / float64(samples), peak, samples
}

// sustainedBelow reports whether every sample stayed under ratio*request.
func (h *podHistory) sustainedBelow(request, ratio float64) bool {
	seen := false
	for _, m := range h.rows {
		if m.CPUUsageMillicores == nil {
			continue
		}
		seen = true
		if *m.CPUUsageMillicores >= ratio*request {
			return false
		}
	}
	return seen
}

func (h *podHistory) latestCPURequest() float64 {
	for i := len(h.rows) - 1; i >= 0; i-- {
		if h.rows[i].CPURequestMillicores != nil {
			return *h.rows[i].CPURequestMillicores
		}
	}
	return 0
}

func (h *podHistory) latestMemoryRequest() int64 {
	for i := len(h.rows) - 1; i >= 0; i-- {
		if h.rows[i].MemoryRequestBytes != nil {
			return *h.rows[i].MemoryRequestBytes
		}
	}
	return 0
}

func (h *podHistory) accumulated() (cost, co2e float64) {
	for _, m := range h.rows {
		cost += types.Deref(m.TotalCost)
		co2e += types.Deref(m.CO2eGrams)
	}
	return cost, co2e
}
