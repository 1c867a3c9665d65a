// Package testutil provides testing utilities for sysmem.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic request-size workloads and helpers that drive the
// garbage collector until a reclamation became observable.
//
// # Workloads
//
//	rng := testutil.NewRNG(seed)
//	sizes := rng.Sizes(100, 64, 4096)     // uniform in [64, 4096]
//	skewed := rng.ZipfSizes(100, 8, 1.5)  // few size classes dominate
//	rng.FillBytes(buf)
//
// # Collection
//
//	testutil.CollectUntil(t, time.Second, func() bool { return pool.UsedBytes() == 0 })
package testutil
