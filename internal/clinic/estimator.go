package clinic

// EstimatorConfig holds the tunables for wait-time projection. It replaces
// any global model state: the estimator is a pure function of its inputs.
type EstimatorConfig struct {
	DefaultServiceMins int // used when a doctor has no completed history
	RollingWindow      int // how many recent completions feed the average
	BufferMins         int // flat minutes added on top of position*average
}

func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		DefaultServiceMins: 15,
		RollingWindow:      20,
		BufferMins:         0,
	}
}

type Estimator struct {
	cfg EstimatorConfig
}

func NewEstimator(cfg EstimatorConfig) *Estimator {
	if cfg.DefaultServiceMins <= 0 {
		cfg.DefaultServiceMins = 15
	}
	if cfg.RollingWindow <= 0 {
		cfg.RollingWindow = 20
	}
	return &Estimator{cfg: cfg}
}

// AverageServiceMins derives the doctor's average consultation time from the
// actual waits of their recent completed tokens, newest first. With no
// history it falls back to the configured default.
func (e *Estimator) AverageServiceMins(recentWaits []int) int {
	if len(recentWaits) == 0 {
		return e.cfg.DefaultServiceMins
	}
	window := recentWaits
	if len(window) > e.cfg.RollingWindow {
		window = window[:e.cfg.RollingWindow]
	}
	sum := 0
	for _, w := range window {
		sum += w
	}
	return sum / len(window)
}

// Estimate projects the wait for a token at the given zero-indexed position
// in the waiting queue. Position zero (next up) is always zero wait; the
// result is never negative.
func (e *Estimator) Estimate(position, avgServiceMins int) int {
	if position <= 0 {
		return 0
	}
	if avgServiceMins < 0 {
		avgServiceMins = 0
	}
	return position*avgServiceMins + e.cfg.BufferMins
}
