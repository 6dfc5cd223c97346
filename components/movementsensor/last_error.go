package movementsensor

import "sync"

// LastError remembers the most recent read failures of a sensor. Once enough of the recent reads
// have failed, the newest failure can be retrieved so a caller logs a flaky sensor once instead of
// on every read.
type LastError struct {
	// These values are immutable
	size      int // The length of errs, below
	threshold int // How many items in errs must be non-nil for us to give back errors when asked

	mu    sync.Mutex
	errs  []error // oldest to newest
	count int     // non-nil entries in errs
}

// NewLastError creates a LastError which returns the most recent error once at least `threshold`
// of the last `size` reads failed.
func NewLastError(size, threshold int) *LastError {
	if size < 1 {
		size = 1
	}
	return &LastError{size: size, threshold: threshold, errs: make([]error, size)}
}

// Set records the outcome of one read. A nil error counts as a success.
func (le *LastError) Set(err error) {
	le.mu.Lock()
	defer le.mu.Unlock()

	if le.errs[0] != nil {
		le.count--
	}
	if err != nil {
		le.count++
	}
	le.errs = append(le.errs[1:], err)
}

// Get returns the newest recorded error if the failure threshold has been reached, and forgets
// everything it has seen so the same error is not reported twice.
func (le *LastError) Get() error {
	le.mu.Lock()
	defer le.mu.Unlock()

	if le.count == 0 || le.count < le.threshold {
		return nil
	}

	var newest error
	for i := len(le.errs) - 1; i >= 0; i-- {
		if le.errs[i] != nil {
			newest = le.errs[i]
			break
		}
	}

	le.errs = make([]error, le.size)
	le.count = 0
	return newest
}
