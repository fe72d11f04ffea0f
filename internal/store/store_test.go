package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "crude-trader/internal/errors"
	"crude-trader/internal/models"
)

func tempStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func barAt(ts time.Time, close float64) models.Bar {
	return models.Bar{
		Timestamp: ts,
		Open:      close - 1, High: close + 2, Low: close - 2, Close: close,
		Volume: 1000, OI: 500,
	}
}

func TestSanitize_SortsAndDeduplicates(t *testing.T) {
	base := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		barAt(base.Add(2*time.Minute), 102),
		barAt(base, 100),
		barAt(base.Add(time.Minute), 101),
		barAt(base, 999), // duplicate timestamp, first occurrence wins
	}

	got, err := Sanitize("CRUDEOIL24JUN6500CE", bars)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Sanitize() kept %d bars, want 3", len(got))
	}
	if !got[0].Timestamp.Equal(base) || got[0].Close != 100 {
		t.Errorf("first bar = %+v, want the earliest original occurrence", got[0])
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Timestamp.Before(got[i].Timestamp) {
			t.Errorf("bars not strictly ordered at %d", i)
		}
	}
}

func TestSanitize_DropsNonFiniteBars(t *testing.T) {
	base := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	bad := barAt(base.Add(time.Minute), 101)
	bad.Close = math.NaN()

	got, err := Sanitize("X", []models.Bar{barAt(base, 100), bad})
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Sanitize() kept %d bars, want 1", len(got))
	}
}

func TestSanitize_EmptyIsError(t *testing.T) {
	_, err := Sanitize("X", nil)
	var dataErr *apperrors.DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("Sanitize() error = %v, want DataError", err)
	}
	if !errors.Is(err, apperrors.ErrNoData) {
		t.Errorf("Sanitize() error does not wrap ErrNoData")
	}
}

func TestLoadBarsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	data := "timestamp,open,high,low,close,volume,oi\n" +
		"2024-06-03 10:00:00,100,102,99,101,1500,2400\n" +
		"2024-06-03T10:01:00Z,101,103,100,102,1600,2500\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	bars, err := LoadBarsCSV(path)
	if err != nil {
		t.Fatalf("LoadBarsCSV() error = %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("LoadBarsCSV() = %d bars, want 2", len(bars))
	}
	if bars[0].Close != 101 || bars[0].OI != 2400 {
		t.Errorf("first bar = %+v", bars[0])
	}
	want := time.Date(2024, 6, 3, 10, 1, 0, 0, time.UTC)
	if !bars[1].Timestamp.Equal(want) {
		t.Errorf("second timestamp = %v, want %v", bars[1].Timestamp, want)
	}
}

func TestLoadBarsCSV_MissingOIColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	data := "timestamp,open,high,low,close,volume\n" +
		"2024-06-03 10:00:00,100,102,99,101,1500\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	bars, err := LoadBarsCSV(path)
	if err != nil {
		t.Fatalf("LoadBarsCSV() error = %v", err)
	}
	if len(bars) != 1 || bars[0].OI != 0 {
		t.Errorf("bars = %+v, want one bar with zero OI", bars)
	}
}

func TestSaveRun_AssignsID(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	run := &RunRecord{
		Symbol:         "CRUDEOIL24JUN6500CE",
		InitialCapital: 100000,
		FinalEquity:    103500,
		TotalTrades:    7,
		SharpeRatio:    1.2,
		ParamsJSON:     `{"fast_ema_period":5}`,
		ReportJSON:     `{"sharpe_ratio":1.2}`,
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if run.ID == 0 {
		t.Error("SaveRun() did not assign an ID")
	}

	runs, err := s.GetRuns(ctx, 10)
	if err != nil {
		t.Fatalf("GetRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].Symbol != run.Symbol || runs[0].SharpeRatio != 1.2 {
		t.Errorf("GetRuns() = %+v", runs)
	}
}

func TestTrades_RoundTripWithFilter(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	run := &RunRecord{Symbol: "X", InitialCapital: 100000, FinalEquity: 100000}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	trades := []models.Trade{
		{Leg: models.SideCE, EntryTime: base, ExitTime: base.Add(time.Hour),
			EntryPrice: 100, ExitPrice: 110, Lots: 2, GrossPnL: 2000, NetPnL: 1925,
			ReturnPercent: 9.6, Reason: models.ExitTakeProfit},
		{Leg: models.SidePE, EntryTime: base.Add(2 * time.Hour), ExitTime: base.Add(3 * time.Hour),
			EntryPrice: 80, ExitPrice: 85, Lots: 1, GrossPnL: -500, NetPnL: -575,
			ReturnPercent: -7.2, Reason: models.ExitStopLoss},
	}
	if err := s.SaveTrades(ctx, run.ID, trades); err != nil {
		t.Fatalf("SaveTrades() error = %v", err)
	}

	got, err := s.GetTrades(ctx, TradeFilter{RunID: run.ID, Leg: models.SidePE})
	if err != nil {
		t.Fatalf("GetTrades() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("GetTrades() = %d trades, want 1", len(got))
	}
	if got[0].Reason != models.ExitStopLoss || got[0].NetPnL != -575 {
		t.Errorf("GetTrades()[0] = %+v", got[0])
	}
}

func TestProperty_BarRoundTripConsistency(t *testing.T) {
	s := tempStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	seq := 0

	properties.Property("bars survive a save and retrieve unchanged", prop.ForAll(
		func(count int, basePrice float64, volume int64) bool {
			ctx := context.Background()
			seq++
			symbol := fmt.Sprintf("CRUDEOIL24JUN6500CE_%d", seq)

			base := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
			bars := make([]models.Bar, count)
			for i := range bars {
				price := basePrice + float64(i)
				bars[i] = models.Bar{
					Timestamp: base.Add(time.Duration(i) * time.Minute),
					Open:      price, High: price + 2, Low: price - 2, Close: price + 1,
					Volume: volume + int64(i), OI: volume / 2,
				}
			}

			if err := s.SaveBars(ctx, symbol, bars); err != nil {
				t.Logf("SaveBars() error = %v", err)
				return false
			}

			from := bars[0].Timestamp.Add(-time.Second)
			to := bars[len(bars)-1].Timestamp.Add(time.Second)
			got, err := s.GetBars(ctx, symbol, from, to)
			if err != nil {
				t.Logf("GetBars() error = %v", err)
				return false
			}
			if len(got) != len(bars) {
				return false
			}
			for i := range got {
				if !got[i].Timestamp.Equal(bars[i].Timestamp) ||
					got[i].Open != bars[i].Open || got[i].High != bars[i].High ||
					got[i].Low != bars[i].Low || got[i].Close != bars[i].Close ||
					got[i].Volume != bars[i].Volume || got[i].OI != bars[i].OI {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.Float64Range(50, 500),
		gen.Int64Range(1000, 1000000),
	))

	properties.TestingRun(t)
}
