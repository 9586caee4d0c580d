// Package irguard enforces a simple rule: the IR graph library holds
// process-wide state that is not re-entrant, so at most one Guard may be
// alive in a process at a time.
//
// Follows a move-only RAII wrapper pattern, translated into a Go value:
// Release and Move clear the source Guard's ownership flag, and a second
// Acquire is rejected while one Guard is outstanding. Copying a Guard by
// value is not detected.
package irguard

import "sync/atomic"

var live int32

// Guard represents exclusive ownership of the graph library's global
// state. The zero Guard is not valid; only a Guard returned by Acquire
// may be Released.
type Guard struct {
	acquired bool
}

// ErrAlreadyAcquired is returned by Acquire when a Guard is already live.
type ErrAlreadyAcquired struct{}

func (ErrAlreadyAcquired) Error() string {
	return "irguard: an IR guard is already live in this process"
}

// Acquire initializes the graph library's global state and returns a
// Guard owning it. A second concurrent Acquire fails immediately.
func Acquire() (*Guard, error) {
	if !atomic.CompareAndSwapInt32(&live, 0, 1) {
		return nil, ErrAlreadyAcquired{}
	}
	return &Guard{acquired: true}, nil
}

// Release tears down the graph library's global state. Release is
// idempotent: calling it twice, or on a moved-from Guard, is a no-op.
func (g *Guard) Release() {
	if g == nil || !g.acquired {
		return
	}
	g.acquired = false
	atomic.StoreInt32(&live, 0)
}

// Move transfers ownership from g to a new Guard value, leaving g
// released; this is the Go equivalent of the C++ RAII type's move
// constructor; Guard has no copy equivalent; duplicating a live Guard by
// value (rather than via Move) is a programmer error the type cannot
// prevent, only discourage by convention.
func (g *Guard) Move() *Guard {
	if g == nil || !g.acquired {
		return &Guard{}
	}
	g.acquired = false
	return &Guard{acquired: true}
}
