package digiflazz

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured     = errors.New("digiflazz: credentials not configured")
	ErrRemote            = errors.New("digiflazz: remote unavailable")
	ErrProtocol          = errors.New("digiflazz: remote returned an error code")
	ErrEmptyCatalog      = errors.New("digiflazz: price list is empty")
	ErrUnrecognizedShape = errors.New("digiflazz: unrecognized response shape")
)

// ProtocolError carries the application-level code and message returned by
// the remote API.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("digiflazz: rc %s", e.Code)
	}
	return fmt.Sprintf("digiflazz: rc %s: %s", e.Code, e.Message)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}
