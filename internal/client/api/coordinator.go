package api

import "sync"

// DefaultWaitLimit caps how many requests may wait on one refresh.
const DefaultWaitLimit = 64

type refreshResult struct {
	token string
	err   error
}

// RefreshCoordinator serializes token refreshes. At most one caller is the
// refresher at a time; the others queue in FIFO order and are released with
// the refresher's outcome. Share one coordinator between clients that share
// a session store.
type RefreshCoordinator struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan refreshResult
	limit    int
}

// NewRefreshCoordinator returns a coordinator whose wait list holds at most
// limit requests; limit <= 0 means DefaultWaitLimit.
func NewRefreshCoordinator(limit int) *RefreshCoordinator {
	if limit <= 0 {
		limit = DefaultWaitLimit
	}
	return &RefreshCoordinator{limit: limit}
}

// Begin either makes the caller the refresher (leader == true) or enqueues it
// and returns the channel its result will arrive on. The leader must call
// Resolve exactly once.
func (rc *RefreshCoordinator) Begin() (leader bool, wait <-chan refreshResult, err error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if !rc.inFlight {
		rc.inFlight = true
		return true, nil, nil
	}
	if len(rc.waiters) >= rc.limit {
		return false, nil, ErrWaitListFull
	}
	ch := make(chan refreshResult, 1)
	rc.waiters = append(rc.waiters, ch)
	return false, ch, nil
}

// Resolve ends the in-flight refresh and releases every waiter, oldest first,
// with token or err.
func (rc *RefreshCoordinator) Resolve(token string, err error) {
	rc.mu.Lock()
	waiters := rc.waiters
	rc.waiters = nil
	rc.inFlight = false
	rc.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{token: token, err: err}
	}
}

func (rc *RefreshCoordinator) InFlight() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.inFlight
}

// Waiting returns the current wait-list length.
func (rc *RefreshCoordinator) Waiting() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.waiters)
}
