// Package errors defines the API-facing error catalogue. Services return
// their own sentinel errors; handlers map them onto these codes.
package errors

// DomainError is an error with a stable machine-readable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}
