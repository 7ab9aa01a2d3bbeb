package events

import "time"

// OperationStart is emitted when an operation enters the chain.
type OperationStart struct {
	Name string
	Kind string
}

// OperationFinish is emitted when an operation settles, including on
// cancellation.
type OperationFinish struct {
	Name          string
	Kind          string
	GraphQLErrors int
	Err           error
	Duration      time.Duration
}

// BusyChanged is emitted when the in-flight count crosses zero.
type BusyChanged struct {
	Busy     bool
	InFlight int64
}
