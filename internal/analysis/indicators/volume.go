package indicators

import (
	"fmt"

	"crude-trader/internal/models"
)

// VWAP calculates Volume Weighted Average Price over a bounded rolling
// window, so old session data cannot dominate the average. Bars whose
// window carries zero total volume are undefined.
type VWAP struct {
	period int
}

// NewVWAP creates a new rolling VWAP indicator.
func NewVWAP(period int) *VWAP {
	return &VWAP{period: period}
}

func (v *VWAP) Name() string {
	return fmt.Sprintf("VWAP_%d", v.period)
}

func (v *VWAP) Period() int {
	return v.period
}

func (v *VWAP) Calculate(bars []models.Bar) ([]Value, error) {
	if v.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < v.period {
		return nil, ErrInsufficientData
	}

	result := make([]Value, len(bars))
	var pvSum, volSum float64

	for i, b := range bars {
		pvSum += b.TypicalPrice() * float64(b.Volume)
		volSum += float64(b.Volume)
		if i >= v.period {
			old := bars[i-v.period]
			pvSum -= old.TypicalPrice() * float64(old.Volume)
			volSum -= float64(old.Volume)
		}
		if i < v.period-1 || volSum <= 0 {
			continue
		}
		result[i] = Defined(pvSum / volSum)
	}

	return result, nil
}

// VolumeMA calculates a rolling mean of traded volume.
type VolumeMA struct {
	period int
}

// NewVolumeMA creates a new volume moving average.
func NewVolumeMA(period int) *VolumeMA {
	return &VolumeMA{period: period}
}

func (m *VolumeMA) Name() string {
	return fmt.Sprintf("VolMA_%d", m.period)
}

func (m *VolumeMA) Period() int {
	return m.period
}

func (m *VolumeMA) Calculate(bars []models.Bar) ([]Value, error) {
	return rollingMeanInt64(bars, m.period, func(b models.Bar) int64 { return b.Volume })
}

// OIMA calculates a rolling mean of open interest.
type OIMA struct {
	period int
}

// NewOIMA creates a new open-interest moving average.
func NewOIMA(period int) *OIMA {
	return &OIMA{period: period}
}

func (m *OIMA) Name() string {
	return fmt.Sprintf("OIMA_%d", m.period)
}

func (m *OIMA) Period() int {
	return m.period
}

func (m *OIMA) Calculate(bars []models.Bar) ([]Value, error) {
	return rollingMeanInt64(bars, m.period, func(b models.Bar) int64 { return b.OI })
}

func rollingMeanInt64(bars []models.Bar, period int, field func(models.Bar) int64) ([]Value, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(bars) < period {
		return nil, ErrInsufficientData
	}

	result := make([]Value, len(bars))
	var total int64
	for i, b := range bars {
		total += field(b)
		if i >= period {
			total -= field(bars[i-period])
		}
		if i >= period-1 {
			result[i] = Defined(float64(total) / float64(period))
		}
	}

	return result, nil
}
