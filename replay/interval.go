package replay

import "time"

// stepInterval determines the auto-advance interval for a live step:
// 1. Policy.Interval (per-operation override)
// 2. defaultInterval (engine-wide)
// 3. DefaultInterval when neither is set
func stepInterval(op any, defaultInterval time.Duration) time.Duration {
	if p, ok := op.(Policied); ok {
		if d := p.Policy().Interval; d > 0 {
			return d
		}
	}
	if defaultInterval > 0 {
		return defaultInterval
	}
	return DefaultInterval
}
