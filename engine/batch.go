package engine

import (
	"runtime"
	"sync"

	"github.com/driftline/signum/types"
)

// Request is one symbol's evaluation input for a batch tick.
type Request struct {
	Symbol  string
	Window  types.Series
	Account AccountState
}

// Result pairs a request's signal with its error; Results are index-aligned
// with the requests that produced them.
type Result struct {
	Signal types.TradingSignal
	Err    error
}

// EvaluateBatch fans the requests out over a worker pool. Each symbol's
// pipeline is pure and independent, so there is no shared mutable state to
// guard; workers are bounded by GOMAXPROCS.
func (e *Engine) EvaluateBatch(reqs []Request) []Result {
	out := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return out
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > len(reqs) {
		workers = len(reqs)
	}
	idx := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range idx {
				sig, err := e.Evaluate(reqs[i].Symbol, reqs[i].Window, reqs[i].Account)
				out[i] = Result{Signal: sig, Err: err}
			}
		}()
	}
	for i := range reqs {
		idx <- i
	}
	close(idx)
	wg.Wait()
	return out
}
