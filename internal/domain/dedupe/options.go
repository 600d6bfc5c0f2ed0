// Package dedupe coalesces recompute requests for the same report.
package dedupe

// Option applies a configuration option to the pending-set deduper.
type Option func(*pendingDeduper)

// WithMaxSize caps how many pending ids are tracked.
// Past the cap the oldest id is forgotten, so a later request for it
// is queued again instead of being coalesced. Values <= 0 keep the default.
func WithMaxSize(maxSize int) Option {
	return func(d *pendingDeduper) {
		if maxSize > 0 {
			d.maxSize = maxSize
		}
	}
}
