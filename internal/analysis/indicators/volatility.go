package indicators

import (
	"fmt"

	"crude-trader/internal/models"
)

// ATR calculates Average True Range as a rolling mean of true ranges.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR_%d", a.period)
}

func (a *ATR) Period() int {
	return a.period
}

func (a *ATR) Calculate(bars []models.Bar) ([]Value, error) {
	if a.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < a.period {
		return nil, ErrInsufficientData
	}

	tr := trueRanges(bars)
	result := make([]Value, len(bars))
	for i := a.period - 1; i < len(bars); i++ {
		result[i] = Defined(mean(tr[i-a.period+1 : i+1]))
	}

	return result, nil
}

// VolatilityFactors derives the per-bar volatility factor used by the
// adaptive EMA and by risk sizing. The factor is (ATR/close)/threshold
// clamped to [0.5, 2.0], and 1.0 wherever ATR is still warming up or
// the close is non-positive.
func VolatilityFactors(bars []models.Bar, atr []Value, threshold float64) []float64 {
	factors := make([]float64, len(bars))
	for i := range bars {
		factors[i] = 1.0
		if i >= len(atr) || !atr[i].Valid {
			continue
		}
		if bars[i].Close <= 0 || threshold <= 0 {
			continue
		}
		ratio := atr[i].Float / bars[i].Close
		factors[i] = clamp(ratio/threshold, 0.5, 2.0)
	}
	return factors
}
