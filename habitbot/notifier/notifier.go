// Package notifier is the delivery boundary: a message plus optional
// action buttons sent to an opaque delivery address. Send failures are
// for callers to log; they are never fatal to scheduling or settlement.
package notifier

import "context"

type ActionStyle int

const (
	StylePrimary ActionStyle = iota
	StyleSecondary
	StyleSuccess
)

// Action is a button attached to a delivered message. ID is the
// component route the interaction comes back on.
type Action struct {
	ID       string
	Label    string
	Style    ActionStyle
	Disabled bool
}

type Notifier interface {
	Send(ctx context.Context, address string, text string, actions []Action) error
}
