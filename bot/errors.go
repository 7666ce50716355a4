package bot

import "fmt"

// InputError reports an incoming message the bot cannot process.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

// ServiceError wraps a failed completion call. The underlying error is
// available through errors.As / errors.Is unchanged.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string {
	return "completion service: " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// StateStoreError wraps a failed transcript load or save.
type StateStoreError struct {
	Op  string // "load" or "save"
	Key string
	Err error
}

func (e *StateStoreError) Error() string {
	return fmt.Sprintf("state store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StateStoreError) Unwrap() error {
	return e.Err
}
