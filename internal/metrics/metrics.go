// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics holds Prometheus metrics for the ingestion, analysis, and
// search subsystems. A single package-level instance registers lazily on
// first use so packages that never touch metrics (tests, the in-memory
// backend alone) never pay the registration cost.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	once sync.Once

	// Ingestion
	parseFiles     *prometheus.CounterVec
	parseNodes     *prometheus.CounterVec
	parseEdges     *prometheus.CounterVec
	parseErrors    *prometheus.CounterVec
	backendFallbacks prometheus.Counter

	// Analysis
	sharedTables       prometheus.Gauge
	sharedConnections  prometheus.Gauge
	crossPackageEdges  prometheus.Counter
	analysisCycles     prometheus.Counter

	// Index
	indexNodes    prometheus.Gauge
	indexBuilds   prometheus.Counter
	indexFailures prometheus.Counter
	searchQueries *prometheus.CounterVec

	// Durations
	parseDuration    prometheus.Histogram
	analysisDuration prometheus.Histogram
	indexDuration    prometheus.Histogram
	searchDuration   *prometheus.HistogramVec
}

var m metrics

var defaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

func (mm *metrics) init() {
	mm.once.Do(func() {
		mm.parseFiles = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mzc_ingest_files_total", Help: "Source files discovered per ingestion tool",
		}, []string{"tool"})
		mm.parseNodes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mzc_ingest_nodes_total", Help: "Graph nodes produced per ingestion tool",
		}, []string{"tool"})
		mm.parseEdges = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mzc_ingest_edges_total", Help: "Graph edges produced per ingestion tool",
		}, []string{"tool"})
		mm.parseErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mzc_ingest_errors_total", Help: "Tool-level parse failures",
		}, []string{"tool"})
		mm.backendFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mzc_orchestrator_backend_fallbacks_total", Help: "Runs that fell back to the in-memory graph backend",
		})

		mm.sharedTables = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mzc_analysis_shared_tables", Help: "Tables written by one package and read by another, from the last analysis run",
		})
		mm.sharedConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mzc_analysis_shared_connections", Help: "Connections used by more than one package, from the last analysis run",
		})
		mm.crossPackageEdges = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mzc_analysis_cross_package_edges_total", Help: "depends_on/shares_resource edges written across all analysis runs",
		})
		mm.analysisCycles = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mzc_analysis_dependency_cycles_total", Help: "Execution-order computations that had to flush a cycle into one level",
		})

		mm.indexNodes = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mzc_index_nodes", Help: "Nodes in the most recently built search index",
		})
		mm.indexBuilds = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mzc_index_builds_total", Help: "Completed index builds",
		})
		mm.indexFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mzc_index_build_failures_total", Help: "Index builds that returned IndexBuildFailure",
		})
		mm.searchQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mzc_search_queries_total", Help: "Search queries served, by mode",
		}, []string{"mode"})

		mm.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "mzc_ingest_parse_seconds", Help: "Wall time of one orchestrator run", Buckets: defaultBuckets,
		})
		mm.analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "mzc_analysis_seconds", Help: "Wall time of one cross-package analysis run", Buckets: defaultBuckets,
		})
		mm.indexDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "mzc_index_build_seconds", Help: "Wall time of one index build", Buckets: defaultBuckets,
		})
		mm.searchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "mzc_search_seconds", Help: "Wall time of one search call, by mode", Buckets: defaultBuckets,
		}, []string{"mode"})

		prometheus.MustRegister(
			mm.parseFiles, mm.parseNodes, mm.parseEdges, mm.parseErrors, mm.backendFallbacks,
			mm.sharedTables, mm.sharedConnections, mm.crossPackageEdges, mm.analysisCycles,
			mm.indexNodes, mm.indexBuilds, mm.indexFailures, mm.searchQueries,
			mm.parseDuration, mm.analysisDuration, mm.indexDuration, mm.searchDuration,
		)
	})
}

// RecordToolResult records one ingestion tool's contribution to a run: file
// count is not tracked separately from node/edge counts by the orchestrator
// today, so callers that only know nodes/edges pass 0 for files.
func RecordToolResult(tool string, files, nodes, edges int, err error) {
	m.init()
	if err != nil {
		m.parseErrors.WithLabelValues(tool).Inc()
		return
	}
	if files > 0 {
		m.parseFiles.WithLabelValues(tool).Add(float64(files))
	}
	m.parseNodes.WithLabelValues(tool).Add(float64(nodes))
	m.parseEdges.WithLabelValues(tool).Add(float64(edges))
}

// RecordBackendFallback increments the in-memory-fallback counter.
func RecordBackendFallback() {
	m.init()
	m.backendFallbacks.Inc()
}

// ObserveParseDuration records one orchestrator run's wall time.
func ObserveParseDuration(d time.Duration) {
	m.init()
	m.parseDuration.Observe(d.Seconds())
}

// RecordAnalysisRun records one cross-package analysis run's shared-resource
// counts, cross-package edge count, cycle flag, and duration.
func RecordAnalysisRun(sharedTables, sharedConnections, edgesAdded int, hadCycle bool, d time.Duration) {
	m.init()
	m.sharedTables.Set(float64(sharedTables))
	m.sharedConnections.Set(float64(sharedConnections))
	m.crossPackageEdges.Add(float64(edgesAdded))
	if hadCycle {
		m.analysisCycles.Inc()
	}
	m.analysisDuration.Observe(d.Seconds())
}

// RecordIndexBuild records one index build's node count, success/failure,
// and duration.
func RecordIndexBuild(nodeCount int, err error, d time.Duration) {
	m.init()
	if err != nil {
		m.indexFailures.Inc()
		return
	}
	m.indexNodes.Set(float64(nodeCount))
	m.indexBuilds.Inc()
	m.indexDuration.Observe(d.Seconds())
}

// RecordSearch records one search call's mode and duration.
func RecordSearch(mode string, d time.Duration) {
	m.init()
	m.searchQueries.WithLabelValues(mode).Inc()
	m.searchDuration.WithLabelValues(mode).Observe(d.Seconds())
}
