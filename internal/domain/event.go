package domain

import (
	"fmt"
	"strings"
)

// EventKind classifies outbound notifications.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventTick
	EventBalance
	EventBuy
	EventSell
)

// AllEvents is the filter sentinel that admits every kind.
const AllEvents = "ALL"

var eventKindNames = map[EventKind]string{
	EventStart:   "START",
	EventTick:    "TICK",
	EventBalance: "BALANCE",
	EventBuy:     "BUY",
	EventSell:    "SELL",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// EventKinds lists every kind in declaration order.
func EventKinds() []EventKind {
	return []EventKind{EventStart, EventTick, EventBalance, EventBuy, EventSell}
}

// ParseEventKind parses a case-insensitive kind name.
func ParseEventKind(s string) (EventKind, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for k, n := range eventKindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}
