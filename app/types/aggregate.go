// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

package types

import "sort"

// Summarize folds a metric set into its aggregate projection. Every storage
// backend serves Summary through this one implementation so the numbers
// cannot drift between backends.
func Summarize(metrics []CombinedMetric) *Summary {
	s := &Summary{}
	pods := make(map[string]struct{})
	namespaces := make(map[string]struct{})

	for i := range metrics {
		m := &metrics[i]
		s.TotalJoules += Deref(m.Joules)
		s.TotalCO2eGrams += Deref(m.CO2eGrams)
		s.TotalEmbodiedCO2eGrams += Deref(m.EmbodiedCO2eGrams)
		s.TotalCost += Deref(m.TotalCost)
		if m.IsEstimated {
			s.EstimatedCount++
		}
		pods[m.Namespace+"/"+m.Pod] = struct{}{}
		namespaces[m.Namespace] = struct{}{}
	}

	s.PodCount = len(pods)
	s.NamespaceCount = len(namespaces)
	return s
}

// BucketSeries folds a metric set into a time-bucketed series at the given
// granularity, ordered by bucket.
func BucketSeries(metrics []CombinedMetric, granularity Granularity) []TimeseriesPoint {
	buckets := make(map[int64]*TimeseriesPoint)
	pods := make(map[int64]map[string]struct{})

	for i := range metrics {
		m := &metrics[i]
		bucket := granularity.Bucket(m.Timestamp)
		k := bucket.Unix()

		point, ok := buckets[k]
		if !ok {
			point = &TimeseriesPoint{Bucket: bucket}
			buckets[k] = point
			pods[k] = make(map[string]struct{})
		}
		point.Joules += Deref(m.Joules)
		point.CO2eGrams += Deref(m.CO2eGrams)
		point.EmbodiedCO2eGrams += Deref(m.EmbodiedCO2eGrams)
		point.Cost += Deref(m.TotalCost)
		pods[k][m.Namespace+"/"+m.Pod] = struct{}{}
	}

	series := make([]TimeseriesPoint, 0, len(buckets))
	for k, point := range buckets {
		point.PodCount = len(pods[k])
		series = append(series, *point)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Bucket.Before(series[j].Bucket)
	})
	return series
}
