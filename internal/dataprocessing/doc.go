// Package dataprocessing provides read-only analysis over dataset snapshots:
// missingness profiling, column classification and the overview analytics
// shown next to the cleaning workflow.
//
// # Architecture
//
// The package is organized into two main components:
//
// 1. Profiler: per-column missing counts/percentages and type classification
// 2. Analytics: describe statistics, correlation matrices, value counts and
//    dataset metrics
//
// Every function in this package is a pure computation over a
// *dataset.Dataset; nothing here mutates a snapshot or holds state between
// calls. Column descriptors are therefore always recomputed on demand and
// never cached across structural changes.
//
// # Usage
//
//	report := dataprocessing.Profile(ds)
//	classes := dataprocessing.Classify(ds)
//	stats := dataprocessing.Describe(ds)
//	matrix, err := dataprocessing.Correlate(ds, dataprocessing.Pearson)
package dataprocessing
