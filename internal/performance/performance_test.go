package performance

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"crude-trader/internal/models"
)

func curveOf(values ...float64) models.EquityCurve {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	curve := make(models.EquityCurve, len(values))
	for i, v := range values {
		curve[i] = models.EquityPoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Equity: v}
	}
	return curve
}

func tradeOf(gross float64) models.Trade {
	return models.Trade{GrossPnL: gross, NetPnL: gross - 75}
}

func TestMaxDrawdown(t *testing.T) {
	pct, value := maxDrawdown(curveOf(100, 120, 90, 110, 80))
	if math.Abs(pct-(-40.0/120.0)) > 1e-9 {
		t.Errorf("maxDrawdown pct = %v, want %v", pct, -40.0/120.0)
	}
	if math.Abs(value-40) > 1e-9 {
		t.Errorf("maxDrawdown value = %v, want 40", value)
	}
}

func TestSharpe_FlatCurveIsZero(t *testing.T) {
	r := Compute(curveOf(100, 100, 100, 100), nil, 100, 0.02)
	if r.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want 0 for constant excess returns", r.SharpeRatio)
	}
}

func TestSharpe_KnownValue(t *testing.T) {
	// Returns 1% and -1%: mean excess = -rf/252, sample std computed by
	// hand over the two observations.
	rf := 0.02
	r := Compute(curveOf(100, 101, 99.99), nil, 100, rf)

	r1, r2 := 0.01, 99.99/101-1
	e1, e2 := r1-rf/252, r2-rf/252
	m := (e1 + e2) / 2
	sd := math.Sqrt(math.Pow(e1-m, 2) + math.Pow(e2-m, 2))
	want := math.Sqrt(252) * m / sd

	if math.Abs(r.SharpeRatio-want) > 1e-9 {
		t.Errorf("SharpeRatio = %v, want %v", r.SharpeRatio, want)
	}
}

func TestSortino_NoDownsideIsZero(t *testing.T) {
	r := Compute(curveOf(100, 110, 121), nil, 100, 0.02)
	if r.SortinoRatio != 0 {
		t.Errorf("SortinoRatio = %v, want 0 without downside observations", r.SortinoRatio)
	}
}

func TestCalmar_NaNWithoutDrawdown(t *testing.T) {
	r := Compute(curveOf(100, 110, 121), nil, 100, 0.02)
	if !math.IsNaN(r.CalmarRatio) {
		t.Errorf("CalmarRatio = %v, want NaN without drawdown", r.CalmarRatio)
	}
	if !math.IsNaN(r.RecoveryFactor) {
		t.Errorf("RecoveryFactor = %v, want NaN without drawdown", r.RecoveryFactor)
	}
}

func TestRecoveryFactor_ReturnOverDrawdown(t *testing.T) {
	// 30% total return against a 10% peak-to-trough decline.
	r := Compute(curveOf(100000, 120000, 108000, 130000), nil, 100000, 0)
	if math.Abs(r.TotalReturnPct-30) > 1e-9 {
		t.Fatalf("TotalReturnPct = %v, want 30", r.TotalReturnPct)
	}
	if math.Abs(r.MaxDrawdownPct-(-0.10)) > 1e-9 {
		t.Fatalf("MaxDrawdownPct = %v, want -0.10", r.MaxDrawdownPct)
	}
	if math.Abs(r.RecoveryFactor-3) > 1e-9 {
		t.Errorf("RecoveryFactor = %v, want 3", r.RecoveryFactor)
	}
}

func TestProfitFactor_InfiniteWithoutLosses(t *testing.T) {
	trades := []models.Trade{tradeOf(500), tradeOf(300)}
	r := Compute(curveOf(100000, 100500, 100800), trades, 100000, 0.02)
	if !math.IsInf(r.ProfitFactor, 1) {
		t.Errorf("ProfitFactor = %v, want +Inf", r.ProfitFactor)
	}
	if r.TotalCosts != 150 {
		t.Errorf("TotalCosts = %v, want 150", r.TotalCosts)
	}
}

func TestMaxConsecutiveLosses_CountsBreakEven(t *testing.T) {
	trades := []models.Trade{
		tradeOf(500),
		tradeOf(-100),
		tradeOf(75), // net exactly zero extends the losing run
		tradeOf(-50),
		tradeOf(400),
		tradeOf(-10),
	}
	r := Compute(curveOf(100000, 100100), trades, 100000, 0.02)
	if r.MaxConsecutiveLosses != 3 {
		t.Errorf("MaxConsecutiveLosses = %d, want 3", r.MaxConsecutiveLosses)
	}
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	xs := []float64{-0.04, -0.02, 0.01, 0.03, 0.05}
	// 5th percentile position is 0.2 between the two lowest values.
	want := -0.04 + 0.2*(-0.02-(-0.04))
	if got := percentile(xs, 0.05); math.Abs(got-want) > 1e-12 {
		t.Errorf("percentile() = %v, want %v", got, want)
	}
}

func TestCompute_WinRateAndAverages(t *testing.T) {
	trades := []models.Trade{tradeOf(500), tradeOf(-200), tradeOf(300), tradeOf(-100)}
	r := Compute(curveOf(100000, 100350), trades, 100000, 0.02)
	if r.WinRatePct != 50 {
		t.Errorf("WinRatePct = %v, want 50", r.WinRatePct)
	}
	if math.Abs(r.AvgWin-325) > 1e-9 {
		t.Errorf("AvgWin = %v, want 325", r.AvgWin)
	}
	if math.Abs(r.AvgLoss-(-225)) > 1e-9 {
		t.Errorf("AvgLoss = %v, want -225", r.AvgLoss)
	}
}

func TestProperty_DrawdownBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("drawdown fraction stays within [-1, 0]", prop.ForAll(
		func(values []float64) bool {
			pct, value := maxDrawdown(curveOf(values...))
			return pct <= 0 && pct >= -1 && value >= 0
		},
		gen.SliceOfN(20, gen.Float64Range(1, 1000)),
	))

	properties.Property("VaR95 never exceeds the median return", prop.ForAll(
		func(xs []float64) bool {
			return percentile(xs, 0.05) <= percentile(xs, 0.5)+1e-12
		},
		gen.SliceOfN(30, gen.Float64Range(-0.1, 0.1)),
	))

	properties.TestingRun(t)
}
