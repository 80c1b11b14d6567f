package strategy

import (
	"errors"
	"math"
	"testing"
	"time"

	"jats/internal/models"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func barsFrom(closes ...float64) []models.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = models.PriceBar{Time: start.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("warm-up values must be undefined: %v", got)
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if !near(got[i+2], w) {
			t.Errorf("sma[%d]=%v want %v", i+2, got[i+2], w)
		}
	}
}

func TestEMASeedsWithFirstValue(t *testing.T) {
	got := EMA([]float64{10, 20, 20}, 3) // alpha = 0.5
	if got[0] != 10 {
		t.Fatalf("first value must seed EMA, got %v", got[0])
	}
	if !near(got[1], 15) || !near(got[2], 17.5) {
		t.Errorf("unexpected EMA: %v", got)
	}
}

func TestRSIHandComputed(t *testing.T) {
	got := RSI([]float64{1, 2, 1, 2}, 2)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("RSI must be undefined before index period: %v", got)
	}
	if !near(got[2], 50) {
		t.Errorf("rsi[2]=%v want 50", got[2])
	}
	if !near(got[3], 75) {
		t.Errorf("rsi[3]=%v want 75", got[3])
	}
}

func TestRSIStrictlyIncreasingIsHundred(t *testing.T) {
	got := RSI(ramp(20, 100, 1), 14)
	for i := 14; i < 20; i++ {
		if got[i] != 100 {
			t.Errorf("rsi[%d]=%v want 100", i, got[i])
		}
	}
}

func TestRSIFlatSeriesIsNeutral(t *testing.T) {
	got := RSI(ramp(20, 100, 0), 14)
	if got[19] != 50 {
		t.Errorf("flat series rsi=%v want 50", got[19])
	}
}

func TestRSIBounded(t *testing.T) {
	closes := []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.8, 46.1, 45.9, 46.2, 45.6, 46.3, 46.3, 46, 46.4, 46.2, 45.6, 46.2}
	got := RSI(closes, 14)
	for i := 14; i < len(closes); i++ {
		if math.IsNaN(got[i]) || got[i] < 0 || got[i] > 100 {
			t.Errorf("rsi[%d]=%v out of range", i, got[i])
		}
	}
}

func TestRSIShortInput(t *testing.T) {
	got := RSI(ramp(14, 1, 1), 14)
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Errorf("rsi[%d] must be undefined for N <= period, got %v", i, v)
		}
	}
}

func TestMACDConstantSeries(t *testing.T) {
	line, sig, hist := MACD(ramp(50, 10, 0), 12, 26, 9)
	for i := range line {
		if math.Abs(line[i]) > eps || math.Abs(sig[i]) > eps || math.Abs(hist[i]) > eps {
			t.Fatalf("constant series must give zero MACD at %d: %v %v %v", i, line[i], sig[i], hist[i])
		}
	}
}

func TestComputeAlignmentAndWarmup(t *testing.T) {
	p := DefaultParams()
	bars := barsFrom(ramp(130, 100, 1)...)
	rows, err := Compute(bars, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != len(bars) {
		t.Fatalf("rows must align 1:1 with bars: %d vs %d", len(rows), len(bars))
	}
	w := p.Warmup()
	if w != 119 {
		t.Fatalf("warm-up must be max(rsi period, longest ma-1), got %d", w)
	}
	if rows[w-1].Complete() {
		t.Errorf("row %d must not be complete", w-1)
	}
	for i := w; i < len(rows); i++ {
		if !rows[i].Complete() {
			t.Fatalf("row %d must be complete", i)
		}
	}
	if !near(rows[129].MovingAverage(5), 227) {
		t.Errorf("ma5 at last row = %v want 227", rows[129].MovingAverage(5))
	}
	if !rows[0].Time.Equal(bars[0].Time) || rows[0].Close != bars[0].Close {
		t.Errorf("row must carry bar time and close")
	}
}

func sameFloat(a, b float64) bool { return math.Float64bits(a) == math.Float64bits(b) }

func TestComputeDeterministic(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 1000 + 50*math.Sin(float64(i)/7) + float64(i%5)
	}
	bars := barsFrom(closes...)
	first, err := Compute(bars, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	second, _ := Compute(bars, DefaultParams())
	for i := range first {
		a, b := first[i], second[i]
		if !sameFloat(a.RSI, b.RSI) || !sameFloat(a.MACD, b.MACD) || !sameFloat(a.MACDSignal, b.MACDSignal) || !sameFloat(a.MACDHist, b.MACDHist) {
			t.Fatalf("row %d differs: %+v vs %+v", i, a, b)
		}
		for w, v := range a.MA {
			if !sameFloat(v, b.MA[w]) {
				t.Fatalf("row %d ma%d differs: %v vs %v", i, w, v, b.MA[w])
			}
		}
	}
}

func TestRisingSeriesHasNoMACDCrossDown(t *testing.T) {
	rows, err := Compute(barsFrom(ramp(200, 100, 2)...), DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	th := DefaultThresholds()
	for i := 1; i < len(rows); i++ {
		if !rows[i].Complete() || !rows[i-1].Complete() {
			continue
		}
		if s := Generate(rows[i], rows[i-1], th); s.MACDCrossDown || s.StrongSell {
			t.Fatalf("unexpected downward signal at %d: %+v", i, s)
		}
	}
}

func TestComputeEmpty(t *testing.T) {
	_, err := Compute(nil, DefaultParams())
	var e *models.Error
	if !errors.As(err, &e) || e.Kind != models.KindDataUnavailable {
		t.Fatalf("expected data unavailable error, got %v", err)
	}
}

func TestComputeRejectsBadParams(t *testing.T) {
	p := DefaultParams()
	p.MACDFast, p.MACDSlow = 26, 12
	_, err := Compute(barsFrom(1, 2, 3), p)
	if models.KindOf(err) != models.KindInvariant {
		t.Fatalf("expected invariant error, got %v", err)
	}
}
