package session

import "errors"

var (
	ErrMalformedPacket   = errors.New("malformed-packet")
	ErrUnknownPacketType = errors.New("unknown-packet-type")
	ErrRateLimited       = errors.New("rate-limited")
	ErrAlreadyConnected  = errors.New("already-connected")
	ErrCannotReportSelf  = errors.New("cannot-report-self")
	ErrServerShutdown    = errors.New("server-shutdown")
	ErrUnknown           = errors.New("unknown-error")
)
