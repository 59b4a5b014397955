package dazeus

import "encoding/json"

// Scope narrows where a property or permission applies. Empty fields are unrestricted.
type Scope struct {
	Network  string
	Sender   string
	Receiver string
}

// AnyScope applies everywhere.
func AnyScope() Scope {
	return Scope{}
}

// NetworkScope applies to a single network.
func NetworkScope(network string) Scope {
	return Scope{Network: network}
}

// SenderScope applies to a sender (typically a channel) on a network.
func SenderScope(network, sender string) Scope {
	return Scope{Network: network, Sender: sender}
}

// ReceiverScope applies to a receiver (typically a user) on a network.
func ReceiverScope(network, receiver string) Scope {
	return Scope{Network: network, Receiver: receiver}
}

// FullScope applies to a receiver within a sender on a network.
func FullScope(network, sender, receiver string) Scope {
	return Scope{Network: network, Sender: sender, Receiver: receiver}
}

// IsAny reports whether the scope has no restrictions.
func (s Scope) IsAny() bool {
	return s == Scope{}
}

// MarshalJSON encodes the scope as [network, sender, receiver] with null for unset fields.
func (s Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]*string{optional(s.Network), optional(s.Sender), optional(s.Receiver)})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
