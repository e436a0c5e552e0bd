package tokbase

import "errors"

// Suspension is returned by a decode call that stopped early and can be
// resumed by calling again with more input or more output room. It is
// not a failure.
type Suspension struct {
	msg string
}

func (s *Suspension) Error() string {
	return s.msg
}

var (
	// ErrShortRead means the source window ran out before decoding could
	// finish. Call again with more source bytes.
	ErrShortRead = &Suspension{msg: "tokbase: short read"}

	// ErrShortWrite means the token window is full. Consume tokens and
	// call again.
	ErrShortWrite = &Suspension{msg: "tokbase: short write"}
)

// IsSuspension reports whether err asks the caller to resume.
func IsSuspension(err error) bool {
	var s *Suspension
	return errors.As(err, &s)
}
