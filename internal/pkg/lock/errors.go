package lock

import "errors"

// ErrBusy is returned by callers that use TryLock as a reentrancy guard
// when the key is already held.
var ErrBusy = errors.New("key is locked by another operation")
