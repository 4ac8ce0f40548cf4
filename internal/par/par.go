// Package par provides the parallel-for abstraction the state-space kernel
// and simulator are written against. It follows the same shape as
// go-highway's contrib/workerpool package (a persistent pool created once
// and reused across many bulk loops) but adds the reduction and
// partition-introspection primitives the kernel needs for PartialNorms,
// InnerProduct, and FindMeasuredBits.
package par

// Executor abstracts a bulk-indexed loop over [0, T) plus a reduction
// variant, so that the state-space kernel and simulator can be written once
// and run under either a sequential or a thread-parallel implementation.
//
// Run, RunReduce, and RunReduceP block until every invocation of f has
// completed; ordering between indices is unspecified, so f must only touch
// memory disjoint across indices.
type Executor interface {
	// Run invokes f(threadID, numThreads, i) for each i in [0, T). T <= 0 is
	// a no-op.
	Run(t int, f func(threadID, numThreads, i int))

	// RunReduce invokes f(threadID, numThreads, i) for each i in [0, T) and
	// combines the results with combine, which must be associative and
	// commutative since the combine order is unspecified. identity is
	// returned directly when T <= 0.
	RunReduce(t int, f func(threadID, numThreads, i int) float64, combine func(a, b float64) float64, identity float64) float64

	// RunReduceP is the partitioned form of RunReduce: it returns one
	// partial reduction per worker partition, in partition order, instead of
	// combining them. Used when the caller needs the partial sums
	// themselves (e.g. to build a cumulative distribution for sampling).
	RunReduceP(t int, f func(threadID, numThreads, i int) float64, combine func(a, b float64) float64, identity float64) []float64

	// NumPartitions returns how many partitions the last RunReduceP over a
	// range of size t would use. Needed so GetIndex0/GetIndex1 are
	// well-defined before a RunReduceP call has happened.
	NumPartitions(t int) int

	// GetIndex0 and GetIndex1 return the half-open index range [k0, k1) that
	// partition m of a RunReduceP(t, ...) call covers.
	GetIndex0(t, m int) int
	GetIndex1(t, m int) int
}
