package models

import "time"

type CommandKind string

const (
	CommandStatus     CommandKind = "status"
	CommandSell       CommandKind = "sell"
	CommandResetStats CommandKind = "resetstats"
)

// Command: команда оператора, обрабатывается в горутине раннера.
type Command struct {
	Kind CommandKind
	From string
}

// Snapshot: неизменяемый срез состояния раннера для health-эндпоинта.
type Snapshot struct {
	Holding     bool
	Position    Position
	LastPrice   float64
	Stats       RiskStats
	Markets     int
	Outstanding int
	UpdatedAt   time.Time
}

func (s Snapshot) State() string {
	if s.Holding {
		return "HOLDING"
	}
	return "FLAT"
}
