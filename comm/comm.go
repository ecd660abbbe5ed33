package comm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// ErrAborted is returned by collectives of a group that was aborted.
var ErrAborted = errors.New("comm: group aborted")

var (
	errGroupSize  = errors.New("comm: group size must be > 0")
	errRankRange  = errors.New("comm: rank out of range")
	errLengthDiff = errors.New("comm: reduction length mismatch")
)

// Communicator identifies one rank within a group of cooperating ranks.
//
// Exchange is the single collective primitive: every rank contributes one
// value and receives all contributions indexed by rank. The returned slice is
// shared by all ranks and must not be modified.
type Communicator interface {
	Rank() int
	Size() int
	IsLeader() bool
	Barrier() error
	Exchange(v any) ([]any, error)
}

// Group is an in-process set of ranks that rendezvous on collectives.
type Group struct {
	size int

	mu      sync.Mutex
	cond    *sync.Cond
	gen     uint64
	arrived int
	pending []any
	result  []any
	err     error
}

// NewGroup creates a group with size ranks.
func NewGroup(size int) (*Group, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", errGroupSize, size)
	}
	g := &Group{size: size}
	g.cond = sync.NewCond(&g.mu)
	return g, nil
}

// Self returns a single-rank communicator.
func Self() Communicator {
	g, _ := NewGroup(1)
	c, _ := g.Rank(0)
	return c
}

// Size returns the number of ranks.
func (g *Group) Size() int { return g.size }

// Rank returns the communicator of rank i.
func (g *Group) Rank(i int) (Communicator, error) {
	if i < 0 || i >= g.size {
		return nil, fmt.Errorf("%w: %d of %d", errRankRange, i, g.size)
	}
	return &member{group: g, rank: i}, nil
}

// Abort wakes every rank blocked in a collective. All later collectives fail
// with an error wrapping [ErrAborted] and cause.
func (g *Group) Abort(cause error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return
	}
	if cause == nil {
		g.err = ErrAborted
	} else {
		g.err = fmt.Errorf("%w: %v", ErrAborted, cause)
	}
	g.cond.Broadcast()
}

func (g *Group) exchange(rank int, v any) ([]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}
	if g.arrived == 0 {
		g.pending = make([]any, g.size)
	}
	g.pending[rank] = v
	g.arrived++

	// The result of round gen stays valid until round gen+1 completes, which
	// needs this rank to arrive again.
	gen := g.gen
	if g.arrived == g.size {
		g.result = g.pending
		g.pending = nil
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
		return g.result, nil
	}
	for g.gen == gen && g.err == nil {
		g.cond.Wait()
	}
	if g.gen == gen {
		return nil, g.err
	}
	return g.result, nil
}

type member struct {
	group *Group
	rank  int
}

func (m *member) Rank() int      { return m.rank }
func (m *member) Size() int      { return m.group.size }
func (m *member) IsLeader() bool { return m.rank == 0 }

func (m *member) Barrier() error {
	_, err := m.group.exchange(m.rank, nil)
	return err
}

func (m *member) Exchange(v any) ([]any, error) {
	return m.group.exchange(m.rank, v)
}

// AllGather collects v from every rank, indexed by rank.
func AllGather[T any](c Communicator, v T) ([]T, error) {
	parts, err := c.Exchange(v)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(parts))
	for i, p := range parts {
		t, ok := p.(T)
		if !ok {
			return nil, fmt.Errorf("comm: rank %d contributed %T, want %T", i, p, v)
		}
		out[i] = t
	}
	return out, nil
}

// Broadcast returns the value contributed by root on every rank.
func Broadcast[T any](c Communicator, v T, root int) (T, error) {
	var zero T
	if root < 0 || root >= c.Size() {
		return zero, fmt.Errorf("%w: root %d", errRankRange, root)
	}
	all, err := AllGather(c, v)
	if err != nil {
		return zero, err
	}
	return all[root], nil
}

// AllReduceSum replaces buf with the element-wise sum of buf over all ranks.
// Contributions are added in rank order, so every rank sees identical bits.
func AllReduceSum(c Communicator, buf []float64) error {
	parts, err := AllGather(c, slices.Clone(buf))
	if err != nil {
		return err
	}
	sum := make([]float64, len(buf))
	for i, p := range parts {
		if len(p) != len(buf) {
			return fmt.Errorf("%w: rank %d has %d, want %d", errLengthDiff, i, len(p), len(buf))
		}
		floats.Add(sum, p)
	}
	copy(buf, sum)
	return nil
}

// Run executes fn on size ranks concurrently and waits for all of them.
//
// The first failing rank aborts the group. The returned error is the first
// rank error that is not a consequence of the abort.
func Run(ctx context.Context, size int, fn func(ctx context.Context, c Communicator) error) error {
	g, err := NewGroup(size)
	if err != nil {
		return err
	}

	errs := make([]error, size)
	eg, ctx := errgroup.WithContext(ctx)
	for r := range size {
		c, _ := g.Rank(r)
		eg.Go(func() error {
			if err := fn(ctx, c); err != nil {
				g.Abort(err)
				errs[r] = fmt.Errorf("rank %d: %w", r, err)
				return errs[r]
			}
			return nil
		})
	}
	_ = eg.Wait()

	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrAborted) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// Split returns the half-open range [lo, hi) of n items owned by rank when
// they are divided as evenly as possible over size ranks.
func Split(n, rank, size int) (lo, hi int) {
	if size <= 0 || rank < 0 || rank >= size {
		return 0, 0
	}
	base, extra := n/size, n%size
	lo = rank*base + min(rank, extra)
	hi = lo + base
	if rank < extra {
		hi++
	}
	return lo, hi
}
