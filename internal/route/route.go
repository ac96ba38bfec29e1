// Package route assigns sparse ordering keys ("route numbers") to loans.
//
// Route numbers sequence the agent's field visits. They double as a
// display label and a sort key, so inserting a new stop between two
// existing ones must never renumber the rest of the route: while
// offline there is no global renumbering transaction to lean on.
// Allocation is therefore sparse and escalating: midpoints first, then
// gap scans, then free multiples of 100 and 10 above the neighbors.
package route

import "sort"

// Keyspace bounds. Outputs are always within [Min, Max]; when the
// keyspace is exhausted the allocator returns a boundary value rather
// than fail, degrading ordering instead of erroring.
const (
	Min = 1
	Max = 9999
)

// firstRoute is issued to the very first loan of a route, leaving
// headroom for inserts on both sides.
const firstRoute = 100

func clamp(n int) int {
	if n < Min {
		return Min
	}
	if n > Max {
		return Max
	}
	return n
}

type used map[int]bool

// gapBetween linearly scans the open interval (low, high) for the first
// free integer.
func (u used) gapBetween(low, high int) (int, bool) {
	start := low + 1
	if start < Min {
		start = Min
	}
	end := high - 1
	if end > Max {
		end = Max
	}
	for cand := start; cand <= end; cand++ {
		if !u[cand] {
			return cand, true
		}
	}
	return 0, false
}

func (u used) freeAscending(start int) int {
	if start < Min {
		start = Min
	}
	for cand := start; cand <= Max; cand++ {
		if !u[cand] {
			return cand
		}
	}
	return Max
}

func (u used) freeDescending(start int) int {
	if start > Max {
		start = Max
	}
	for cand := start; cand >= Min; cand-- {
		if !u[cand] {
			return cand
		}
	}
	return Min
}

// pickBetween prefers the arithmetic midpoint of (low, high) when it is
// strictly inside the interval and unused, then falls back to a linear
// gap scan.
func (u used) pickBetween(low, high int) (int, bool) {
	if high-low <= 1 {
		return u.gapBetween(low, high)
	}
	cand := (low + high) / 2
	if cand <= low {
		cand = low + 1
	}
	if cand >= high {
		cand = high - 1
	}
	cand = clamp(cand)
	if cand > low && cand < high && !u[cand] {
		return cand, true
	}
	return u.gapBetween(low, high)
}

// pickAfter escalates above ref: next free multiple of 100, then next
// free multiple of 10, then any free integer, all strictly above ref.
func (u used) pickAfter(ref int) int {
	for _, step := range []int{100, 10} {
		for cand := (ref/step)*step + step; cand <= Max; cand += step {
			if !u[cand] {
				return cand
			}
		}
	}
	return u.freeAscending(ref + 1)
}

// NextRouteNumber allocates an ordering key for a loan inserted between
// left and right (either may be nil, meaning the route boundary). The
// existing slice holds every key already in use by the agent's active
// loans; out-of-range values are ignored. The result is never a key
// already in use, except when the whole keyspace is exhausted.
func NextRouteNumber(existing []int, left, right *int) int {
	routes := make([]int, 0, len(existing))
	seen := used{}
	for _, r := range existing {
		if r < Min || r > Max || seen[r] {
			continue
		}
		seen[r] = true
		routes = append(routes, r)
	}
	if len(routes) == 0 {
		return firstRoute
	}
	sort.Ints(routes)
	first := routes[0]
	last := routes[len(routes)-1]

	switch {
	// Insert before the first record.
	case left == nil && right != nil && *right == first:
		if cand, ok := seen.pickBetween(0, *right); ok {
			return cand
		}
		if *right <= Min {
			return seen.freeAscending(Min)
		}
		return seen.freeDescending(*right - 1)

	// Insert between two known neighbors.
	case left != nil && right != nil:
		if cand, ok := seen.pickBetween(*left, *right); ok {
			return cand
		}
		upper := *left
		if *right > upper {
			upper = *right
		}
		return seen.pickAfter(upper)

	// Insert after the last record.
	case left != nil:
		return seen.pickAfter(*left)

	// Only a following neighbor known, and it is not the first key:
	// insert under it, preferring the gap to its predecessor.
	case right != nil:
		prev := -1
		for _, r := range routes {
			if r < *right {
				prev = r
			}
		}
		if prev >= 0 {
			if cand, ok := seen.pickBetween(prev, *right); ok {
				return cand
			}
		}
		if cand, ok := seen.pickBetween(0, *right); ok {
			return cand
		}
		return seen.freeDescending(*right - 1)

	// No context at all: extend past the end of the route.
	default:
		return seen.pickAfter(last)
	}
}
