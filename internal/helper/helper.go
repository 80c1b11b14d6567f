package helper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"jats/internal/models"

	"github.com/pkg/errors"
)

// ParseTimeframe разбирает "1m".."240m", "1h", "4h", "1d"/"day".
func ParseTimeframe(raw string) (models.Timeframe, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "1d", "d", "day", "days":
		return models.Timeframe{Daily: true}, nil
	case "1h", "60m":
		return models.Timeframe{Minutes: 60}, nil
	case "4h", "240m":
		return models.Timeframe{Minutes: 240}, nil
	}
	if n, ok := strings.CutSuffix(s, "m"); ok {
		v, err := strconv.Atoi(n)
		if err != nil {
			return models.Timeframe{}, errors.Wrapf(err, "timeframe %q", raw)
		}
		switch v {
		case 1, 3, 5, 10, 15, 30:
			return models.Timeframe{Minutes: v}, nil
		}
	}
	return models.Timeframe{}, errors.Errorf("unsupported timeframe %q", raw)
}

// RoundDownToTick округляет вниз к шагу (tick<=0: без округления).
func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-9)
	return steps * tick
}

// ClockTime: время суток "HH:MM".
type ClockTime struct {
	Hour   int
	Minute int
}

func ParseClock(raw string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return ClockTime{}, errors.Wrapf(err, "clock %q", raw)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On: момент c в сутках t (в зоне t).
func (c ClockTime) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, t.Location())
}

// LastBoundary: последний момент c, не позже t.
func (c ClockTime) LastBoundary(t time.Time) time.Time {
	b := c.On(t)
	if b.After(t) {
		b = c.On(t.AddDate(0, 0, -1))
	}
	return b
}

// InWindow: t внутри [start, end] включительно; при start > end окно переходит через полночь.
func InWindow(t time.Time, start, end ClockTime) bool {
	now := t.Hour()*60 + t.Minute()
	s, e := start.minutes(), end.minutes()
	if s <= e {
		return now >= s && now <= e
	}
	return now >= s || now <= e
}

// StartOfDay: полночь суток t в зоне t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
