package formulas

// Drawdown describes the largest peak-to-trough decline of a value series.
// Indices refer to positions in the input slice; -1 means absent.
type Drawdown struct {
	Max           float64 // fraction of the peak, e.g. 0.25 for 25%
	PeakIndex     int
	TroughIndex   int
	RecoveryIndex int
}

// Recovered reports whether the series returned to the drawdown's peak value.
func (d Drawdown) Recovered() bool {
	return d.RecoveryIndex >= 0
}

// CalculateMaxDrawdown scans the series once while tracking the running peak.
// When several troughs share the maximum drawdown the earliest one is reported.
// Points under a non-positive peak carry no meaningful drawdown and are skipped.
func CalculateMaxDrawdown(values []float64) (Drawdown, error) {
	result := Drawdown{PeakIndex: -1, TroughIndex: -1, RecoveryIndex: -1}
	if len(values) < 2 {
		return result, ErrInsufficientData
	}

	peakIdx := 0
	positivePeak := false
	for i, v := range values {
		if v > values[peakIdx] {
			peakIdx = i
		}

		peak := values[peakIdx]
		if peak <= 0 {
			continue
		}
		positivePeak = true

		dd := (peak - v) / peak
		if dd > result.Max {
			result.Max = dd
			result.PeakIndex = peakIdx
			result.TroughIndex = i
		}
	}

	if !positivePeak {
		return result, ErrDegenerateBase
	}

	if result.TroughIndex >= 0 {
		peakValue := values[result.PeakIndex]
		for i := result.TroughIndex + 1; i < len(values); i++ {
			if values[i] >= peakValue {
				result.RecoveryIndex = i
				break
			}
		}
	}

	return result, nil
}
