package engine

import (
	"math"
	"time"

	"github.com/pharos-audit/pharos/internal/domain"
)

// scoreCurve pins a log-normal scoring curve at two control points: a
// value at p10 scores 0.9 and a value at the median scores 0.5.
type scoreCurve struct {
	p10    time.Duration
	median time.Duration
}

// Device-specific curves. Mobile targets are more forgiving because the
// emulated device class is slower end to end.
var (
	mobileTTFBCurve  = scoreCurve{p10: 800 * time.Millisecond, median: 1800 * time.Millisecond}
	desktopTTFBCurve = scoreCurve{p10: 500 * time.Millisecond, median: 1200 * time.Millisecond}

	mobileLoadCurve  = scoreCurve{p10: 3800 * time.Millisecond, median: 7300 * time.Millisecond}
	desktopLoadCurve = scoreCurve{p10: 1500 * time.Millisecond, median: 3500 * time.Millisecond}
)

// Metric weights within the overall score.
const (
	ttfbWeight = 0.3
	loadWeight = 0.7
)

// scoreTiming reduces a navigation's phase timings to a single score in
// [0, 1], rounded to two decimals.
func scoreTiming(t domain.Timing, device domain.DeviceMode) float64 {
	ttfbCurve, loadCurve := desktopTTFBCurve, desktopLoadCurve
	if device == domain.DeviceMobile {
		ttfbCurve, loadCurve = mobileTTFBCurve, mobileLoadCurve
	}

	score := ttfbWeight*logNormalScore(t.TTFB, ttfbCurve) +
		loadWeight*logNormalScore(t.Total, loadCurve)
	return math.Round(score*100) / 100
}

// logNormalScore maps a duration onto [0, 1] using the log-normal
// cumulative distribution through the curve's control points. Smaller is
// better; zero or negative durations score a perfect 1.
func logNormalScore(value time.Duration, curve scoreCurve) float64 {
	if value <= 0 {
		return 1
	}

	logRatio := math.Log(value.Seconds() / curve.median.Seconds())
	logP10Ratio := math.Log(curve.p10.Seconds() / curve.median.Seconds())

	// 1.28155 is the z-score of the 90th percentile of the standard
	// normal distribution, which places p10 at a score of 0.9.
	sigma := math.Abs(logP10Ratio) / 1.28155
	if sigma == 0 {
		if value <= curve.median {
			return 1
		}
		return 0
	}

	return 0.5 * math.Erfc(logRatio/(sigma*math.Sqrt2))
}
