package models

import (
	"fmt"
	"strings"
)

type Status int

const (
	StatusTodo Status = iota + 1
	StatusInProgress
	StatusDone
)

var statusNames = map[Status]string{
	StatusTodo:       "Todo",
	StatusInProgress: "InProgress",
	StatusDone:       "Done",
}

// Statuses lists every valid status in declaration order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, &ParseEnumError{Field: "status", Value: s.String()}
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus matches raw against the canonical names ignoring case only.
func ParseStatus(raw string) (Status, error) {
	lowered := strings.ToLower(raw)
	for _, s := range Statuses {
		if strings.ToLower(statusNames[s]) == lowered {
			return s, nil
		}
	}
	return 0, &ParseEnumError{Field: "status", Value: raw}
}

type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

var priorityNames = map[Priority]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
}

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

func (p Priority) IsValid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, &ParseEnumError{Field: "priority", Value: p.String()}
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func ParsePriority(raw string) (Priority, error) {
	lowered := strings.ToLower(raw)
	for _, p := range Priorities {
		if strings.ToLower(priorityNames[p]) == lowered {
			return p, nil
		}
	}
	return 0, &ParseEnumError{Field: "priority", Value: raw}
}
