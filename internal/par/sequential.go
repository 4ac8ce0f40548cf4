package par

// Sequential is the single-threaded Executor: thread id 0, one worker, one
// partition. It exists so the kernel can be exercised and tested without
// goroutine overhead, and so results can be compared against Pool runs to
// check the reduction-reassociation tolerance in the testable properties.
type Sequential struct{}

var _ Executor = Sequential{}

func (Sequential) Run(t int, f func(threadID, numThreads, i int)) {
	for i := 0; i < t; i++ {
		f(0, 1, i)
	}
}

func (Sequential) RunReduce(t int, f func(threadID, numThreads, i int) float64, combine func(a, b float64) float64, identity float64) float64 {
	acc := identity
	for i := 0; i < t; i++ {
		acc = combine(acc, f(0, 1, i))
	}
	return acc
}

func (s Sequential) RunReduceP(t int, f func(threadID, numThreads, i int) float64, combine func(a, b float64) float64, identity float64) []float64 {
	return []float64{s.RunReduce(t, f, combine, identity)}
}

func (Sequential) NumPartitions(t int) int {
	return 1
}

func (Sequential) GetIndex0(t, m int) int {
	return 0
}

func (Sequential) GetIndex1(t, m int) int {
	return t
}
