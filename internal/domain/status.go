package domain

import "fmt"

// TradeStatus represents the lifecycle state of a trade.
// PLANNED and ACTIVE are non-terminal; WIN and LOSS are terminal.
type TradeStatus string

const (
	StatusPlanned TradeStatus = "PLANNED"
	StatusActive  TradeStatus = "ACTIVE"
	StatusWin     TradeStatus = "WIN"
	StatusLoss    TradeStatus = "LOSS"
)

// statusAliases maps legacy status strings (still present in older journal
// exports) to their canonical counterparts. Aliases are translated once at
// the boundary; business logic only ever sees the four canonical states.
var statusAliases = map[string]TradeStatus{
	"PLANNING": StatusPlanned,
	"OPEN":     StatusActive,
	"CLOSED":   StatusWin,
}

// ParseStatus converts a raw status string, canonical or legacy alias, into
// a canonical TradeStatus.
func ParseStatus(raw string) (TradeStatus, error) {
	switch TradeStatus(raw) {
	case StatusPlanned, StatusActive, StatusWin, StatusLoss:
		return TradeStatus(raw), nil
	}
	if canonical, ok := statusAliases[raw]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("unknown trade status %q", raw)
}

// IsTerminal reports whether the status represents a realized final outcome.
func (s TradeStatus) IsTerminal() bool {
	return s == StatusWin || s == StatusLoss
}

// IsValid reports whether the status is one of the four canonical states.
func (s TradeStatus) IsValid() bool {
	switch s {
	case StatusPlanned, StatusActive, StatusWin, StatusLoss:
		return true
	}
	return false
}
