package events

import (
	"net/http"
	"time"
)

// HTTPClientStart is emitted before the transport sends a request.
type HTTPClientStart struct {
	Request   *http.Request
	Multipart bool
}

// HTTPClientFinish is emitted after the exchange completes. Status is 0
// when no response arrived.
type HTTPClientFinish struct {
	Request  *http.Request
	Status   int
	Err      error
	Duration time.Duration
}
