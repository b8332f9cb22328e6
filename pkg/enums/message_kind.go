package enums

import "fmt"

// MessageKind distinguishes how a negotiation message was produced.
type MessageKind string

const (
	MessageKindText         MessageKind = "text"
	MessageKindOffer        MessageKind = "offer"
	MessageKindCounterOffer MessageKind = "counter_offer"
	MessageKindSystem       MessageKind = "system"
)

var validMessageKinds = []MessageKind{
	MessageKindText,
	MessageKindOffer,
	MessageKindCounterOffer,
	MessageKindSystem,
}

// String implements fmt.Stringer.
func (k MessageKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known MessageKind.
func (k MessageKind) IsValid() bool {
	for _, candidate := range validMessageKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseMessageKind converts raw input into a MessageKind.
func ParseMessageKind(value string) (MessageKind, error) {
	for _, candidate := range validMessageKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid message kind %q", value)
}
