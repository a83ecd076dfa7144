package scan

import (
	"sort"
	"sync"

	"connscan/internal/probe"
)

// ResultSet accumulates open results in the order they are recorded.
// After Finalize it is frozen and further records are dropped.
type ResultSet struct {
	mu     sync.Mutex
	open   []probe.Result
	frozen bool
}

// Record appends res if it is open and the set is not frozen. It reports whether res was kept.
func (rs *ResultSet) Record(res probe.Result) bool {
	if !res.Open {
		return false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.frozen {
		return false
	}
	rs.open = append(rs.open, res)
	return true
}

// Finalize freezes the set and returns its contents in record order.
func (rs *ResultSet) Finalize() []probe.Result {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.frozen = true
	out := make([]probe.Result, len(rs.open))
	copy(out, rs.open)
	return out
}

// Len returns the number of open results recorded so far.
func (rs *ResultSet) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.open)
}

// SortByPort returns a copy of results ordered by port, for display.
func SortByPort(results []probe.Result) []probe.Result {
	out := make([]probe.Result, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}
