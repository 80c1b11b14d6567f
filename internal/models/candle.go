package models

import (
	"fmt"
	"time"
)

// PriceBar: одна свеча OHLCV. Срезы баров всегда идут по возрастанию времени.
type PriceBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Timeframe задаёт размер свечи: минуты (1..240) или дневка.
type Timeframe struct {
	Minutes int
	Daily   bool
}

func (tf Timeframe) String() string {
	if tf.Daily {
		return "1d"
	}
	return fmt.Sprintf("%dm", tf.Minutes)
}

// Duration: длительность одной свечи.
func (tf Timeframe) Duration() time.Duration {
	if tf.Daily {
		return 24 * time.Hour
	}
	return time.Duration(tf.Minutes) * time.Minute
}

func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
