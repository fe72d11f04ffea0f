package risk

import (
	"crude-trader/internal/analysis/indicators"
	"crude-trader/internal/models"
)

// Classify labels the prevailing market context from the latest close,
// the slow-period SMA and ATR. High relative volatility dominates the
// trend classification.
func Classify(close float64, sma, atr indicators.Value, volThreshold float64) models.MarketRegime {
	if !sma.Valid || close <= 0 {
		return models.RegimeUnknown
	}
	if atr.Valid && atr.Float/close > volThreshold {
		return models.RegimeVolatile
	}
	switch {
	case close > sma.Float*1.02:
		return models.RegimeUptrend
	case close < sma.Float*0.98:
		return models.RegimeDowntrend
	default:
		return models.RegimeRanging
	}
}
