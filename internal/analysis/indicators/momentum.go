package indicators

import (
	"fmt"

	"crude-trader/internal/models"
)

// RSI calculates the Relative Strength Index using simple rolling means
// of gains and losses rather than Wilder smoothing. Bars where the
// average loss is zero carry an undefined value instead of a pinned 100.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

func (r *RSI) Calculate(bars []models.Bar) ([]Value, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < r.period+1 {
		return nil, ErrInsufficientData
	}

	n := len(bars)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		delta := bars[i].Close - bars[i-1].Close
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	result := make([]Value, n)
	for i := r.period; i < n; i++ {
		avgGain := mean(gains[i-r.period+1 : i+1])
		avgLoss := mean(losses[i-r.period+1 : i+1])
		if avgLoss == 0 {
			continue
		}
		rs := avgGain / avgLoss
		result[i] = Defined(100 - 100/(1+rs))
	}

	return result, nil
}
