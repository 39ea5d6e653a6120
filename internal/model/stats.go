package model

// StatsWindow holds all windowed statistics for one evaluation point of a
// series. It is a pure function of the series and an index; windows that
// would reach before the first bar are clamped to the available prefix.
type StatsWindow struct {
	Close       float64
	MA50        float64
	MA200       float64
	High252     float64
	AvgVolume50 float64
	Perf3m      float64 // 63-bar return, 0 when fewer than 64 bars exist
	Perf6m      float64 // 126-bar return, 0 when fewer than 127 bars exist

	// Rolling close highs/lows for the short lookbacks used by pattern
	// detection, keyed by window length.
	High map[int]float64
	Low  map[int]float64
}
