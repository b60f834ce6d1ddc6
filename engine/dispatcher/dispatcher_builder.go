package dispatcher

import "runtime"

// DispatcherBuilderOption is a functional option for configuring a Dispatcher.
type DispatcherBuilderOption func(*dispatcherImpl)

// WithWorkers sets the number of pool workers. Values below 1 select NumCPU-1 (at least 1).
//
// Parameters:
//   - n: the number of pool workers, not counting the caller
//
// Returns:
//   - DispatcherBuilderOption: option to apply
func WithWorkers(n int) DispatcherBuilderOption {
	return func(d *dispatcherImpl) {
		if n < 1 {
			n = max(runtime.NumCPU()-1, 1)
		}
		d.workers = n
	}
}
