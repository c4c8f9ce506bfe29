package sdkrequest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/inngest/inngestsdk/pkg/consts"
	"github.com/inngest/inngestsdk/pkg/enums"
	"github.com/inngest/inngestsdk/pkg/execution/state"
	"github.com/inngest/inngestsdk/pkg/sdkerrors"
	"github.com/inngest/inngestsdk/pkg/syscode"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrNestedStep is returned when a step tool is used within the callback
	// of another step.
	ErrNestedStep = errors.New("step tools cannot be used within a step's callback")
	// ErrNotInFunction is raised when a step tool is used outside of a
	// function invoked by the executor.
	ErrNotInFunction = errors.New("step called without function context")
)

// ControlHijack is used to unwind a routine's stack when the tick ends while
// the routine is parked on a step.  It's recovered by the manager and must
// never be recovered by user code.
type ControlHijack struct{}

// RunFunc is the callback of a run step, or the body of a group branch.
type RunFunc func(ctx context.Context) (any, error)

// InvocationManager holds the state for a single tick and schedules the
// routines which execute the function.  Step tools use it to declare ops.
type InvocationManager interface {
	// Declare registers an op for the given name and opcode, then parks the
	// calling routine until the op is resolved from history.  If the tick ends
	// first, Declare panics with ControlHijack.
	Declare(ctx context.Context, op enums.Opcode, name string, opts map[string]any, fn RunFunc) state.MemoizedOp
	// Group runs each fn in its own routine then parks the caller until done
	// reports true.  done is called with the manager's lock held.
	Group(ctx context.Context, fns []RunFunc, done func([]*GroupResult) bool) []*GroupResult
	// SetErr records an error which aborts the tick.
	SetErr(err error)
	// Err returns the error set via SetErr.
	Err() error
	// Request returns the request being handled.
	Request() *Request
	// Clock returns the clock used within the tick.
	Clock() clockwork.Clock
}

// GroupResult is the result of a single branch within a group.
type GroupResult struct {
	Index    int
	Value    any
	Error    error
	Finished bool
	// order is the completion order of the branch, starting at 1.
	order int
}

// Order returns the position in which the branch finished, or 0 if it has not
// finished.
func (g GroupResult) Order() int {
	return g.order
}

type routineState int

const (
	routineRunning routineState = iota
	routineParked
	routineDone
)

type routine struct {
	state routineState
	// until is set while the routine is parked, and reports whether it can
	// run again.
	until func() bool
}

type opKey struct {
	name string
	op   enums.Opcode
}

// PendingOp is an op declared within the current tick.
type PendingOp struct {
	state.GeneratorOpcode

	fn    RunFunc
	ctx   context.Context
	phase int

	settled bool
	result  state.MemoizedOp
}

// Runnable returns whether the op has a callback to execute.
func (p *PendingOp) Runnable() bool {
	return p.fn != nil
}

// Execute runs the op's callback, recovering any panics as errors.
func (p *PendingOp) Execute() (val any, err error) {
	if p.fn == nil {
		return nil, fmt.Errorf("op %s (%s) is not runnable", p.Name, p.Op)
	}

	ctx := context.WithValue(p.ctx, inStepCtxKey, p.ID)
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = sdkerrors.PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return p.fn(ctx)
}

// ManagerOpts configures a Manager.
type ManagerOpts struct {
	Request *Request
	Stack   state.OpStack
	// Clock is returned to step tools.  It never drives the async boundary.
	Clock clockwork.Clock
	// Boundary is how long the manager waits for a busy routine to park before
	// reporting that the tick is waiting on untracked work.
	Boundary time.Duration
}

// Manager implements InvocationManager.  Only one routine runs at any time:
// each routine hands control back when it parks on a step, parks in a group,
// or returns.
type Manager struct {
	mu      sync.Mutex
	cond    *sync.Cond
	changed chan struct{}

	request *Request
	stack   state.OpStack
	memo    state.Memo

	clock    clockwork.Clock
	boundary time.Duration

	counters map[opKey]uint
	ops      []*PendingOp
	byID     map[string]*PendingOp
	phase    int
	resolved int

	routines []*routine
	root     *routine
	rootVal  any
	rootErr  error

	awaitingCompletion bool
	ended              bool

	err       error
	violation error
	panicErr  error
}

// NewManager creates the state for a single tick.
func NewManager(opts ManagerOpts) (*Manager, error) {
	memo, err := state.NewMemo(opts.Stack)
	if err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Boundary <= 0 {
		opts.Boundary = consts.DefaultAsyncBoundary
	}
	if opts.Request == nil {
		opts.Request = &Request{}
	}

	m := &Manager{
		changed:  make(chan struct{}, 1),
		request:  opts.Request,
		stack:    opts.Stack,
		memo:     memo,
		clock:    opts.Clock,
		boundary: opts.Boundary,
		counters: map[opKey]uint{},
		byID:     map[string]*PendingOp{},
	}
	m.cond = sync.NewCond(&m.mu)
	return m, nil
}

func (m *Manager) Request() *Request {
	return m.request
}

func (m *Manager) Clock() clockwork.Clock {
	return m.clock
}

func (m *Manager) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err == nil {
		m.err = err
	}
}

func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Violation returns the determinism violation recorded by step tools, if any.
func (m *Manager) Violation() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violation
}

// Panic returns the first panic recovered from a routine.
func (m *Manager) Panic() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.panicErr
}

func (m *Manager) Declare(ctx context.Context, op enums.Opcode, name string, opts map[string]any, fn RunFunc) state.MemoizedOp {
	if ctx.Value(inStepCtxKey) != nil {
		panic(ErrNestedStep)
	}

	r, _ := ctx.Value(routineCtxKey).(*routine)

	m.mu.Lock()
	if m.ended || r == nil {
		m.mu.Unlock()
		panic(ControlHijack{})
	}
	if m.awaitingCompletion {
		if m.violation == nil {
			m.violation = syscode.NewStepUsedAfterAsync(name)
		}
		m.transitionLocked()
		m.mu.Unlock()
		panic(ControlHijack{})
	}

	key := opKey{name: name, op: op}
	u := UnhashedOp{Name: name, Op: op, Opts: opts, Pos: m.counters[key]}
	id, err := u.Hash()
	if err != nil {
		if m.err == nil {
			m.err = err
		}
		m.transitionLocked()
		m.mu.Unlock()
		panic(ControlHijack{})
	}
	m.counters[key]++

	p := &PendingOp{
		GeneratorOpcode: state.GeneratorOpcode{
			ID:   id,
			Op:   op,
			Name: name,
			Opts: opts,
		},
		fn:    fn,
		ctx:   ctx,
		phase: m.phase,
	}
	m.ops = append(m.ops, p)
	m.byID[id] = p

	m.parkLocked(r, func() bool { return p.settled })
	res := p.result
	m.mu.Unlock()
	return res
}

func (m *Manager) Group(ctx context.Context, fns []RunFunc, done func([]*GroupResult) bool) []*GroupResult {
	caller, _ := ctx.Value(routineCtxKey).(*routine)

	m.mu.Lock()
	if m.ended || caller == nil {
		m.mu.Unlock()
		panic(ControlHijack{})
	}

	results := make([]*GroupResult, len(fns))
	finished := 0
	for i, fn := range fns {
		res := &GroupResult{Index: i}
		results[i] = res

		r := m.spawnLocked(ctx, func(ctx context.Context) {
			res.Value, res.Error = fn(ctx)
		}, func() {
			finished++
			res.Finished = true
			res.order = finished
		})

		// Each branch runs until it parks or returns before the next one
		// starts, so that ops are declared in branch order.
		for r.state == routineRunning {
			if m.ended {
				m.mu.Unlock()
				panic(ControlHijack{})
			}
			m.cond.Wait()
		}
	}

	m.parkLocked(caller, func() bool { return done(results) })
	m.mu.Unlock()
	return results
}

// Start runs the function body as the root routine.
func (m *Manager) Start(ctx context.Context, fn RunFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = m.spawnLocked(ctx, func(ctx context.Context) {
		m.rootVal, m.rootErr = fn(ctx)
	}, nil)
}

// Done returns whether the function body has returned.
func (m *Manager) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.root != nil && m.root.state == routineDone
}

// Result returns the function body's return values.  It's only valid once
// Done reports true.
func (m *Manager) Result() (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rootVal, m.rootErr
}

// Settle blocks until no routine is running.  It returns false if a routine
// stays busy for longer than the async boundary without parking, which means
// the function is waiting on work outside of a step.
func (m *Manager) Settle(ctx context.Context) (bool, error) {
	for {
		m.mu.Lock()
		busy := m.busyLocked()
		m.mu.Unlock()
		if !busy {
			return true, nil
		}

		// The boundary runs on wall time.  The injected clock only stamps
		// values within the tick.
		timer := time.NewTimer(m.boundary)
		select {
		case <-m.changed:
			timer.Stop()
		case <-timer.C:
			return false, nil
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		}
	}
}

// AwaitCompletion waits for the function body to return when it has declared
// no steps.  Any step declared from now on is a determinism violation.
func (m *Manager) AwaitCompletion(ctx context.Context) error {
	m.mu.Lock()
	m.awaitingCompletion = true
	m.mu.Unlock()

	for {
		m.mu.Lock()
		finished := m.root.state == routineDone || m.violation != nil || m.err != nil
		m.mu.Unlock()
		if finished {
			return nil
		}

		select {
		case <-m.changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Resolve settles the op with the given ID using its memoized result, waking
// the routine parked on it and starting the next phase.  It returns false if
// no unresolved op with this ID has been declared.
func (m *Manager) Resolve(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byID[id]
	if !ok || p.settled {
		return false
	}
	res, ok := m.memo.Lookup(id)
	if !ok {
		return false
	}

	p.result = res
	p.settled = true
	m.phase++
	m.resolved++
	m.transitionLocked()
	return true
}

// PhaseOps returns the ops declared since the last call to Resolve, in
// declaration order.
func (m *Manager) PhaseOps() []*PendingOp {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := []*PendingOp{}
	for _, p := range m.ops {
		if p.phase == m.phase && !p.settled {
			ops = append(ops, p)
		}
	}
	return ops
}

// Pending returns the declared, unresolved op with the given ID.
func (m *Manager) Pending(id string) (*PendingOp, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byID[id]
	if !ok || p.settled {
		return nil, false
	}
	return p, true
}

// Declared returns the number of ops declared within the tick.
func (m *Manager) Declared() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ops)
}

// Resolved returns the number of ops resolved from the memo.
func (m *Manager) Resolved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolved
}

// End finishes the tick.  Parked routines unwind, and any step tool used by a
// routine which is still running panics with ControlHijack.
func (m *Manager) End() {
	m.mu.Lock()
	m.ended = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

func (m *Manager) busyLocked() bool {
	for _, r := range m.routines {
		if r.state == routineRunning {
			return true
		}
	}
	return false
}

// parkLocked parks r until until reports true.  It must be called with m.mu
// held, and returns with m.mu held.  If the tick ends first the lock is
// released and parkLocked panics with ControlHijack.
func (m *Manager) parkLocked(r *routine, until func() bool) {
	r.state = routineParked
	r.until = until
	m.transitionLocked()

	for r.state != routineRunning {
		if m.ended {
			m.mu.Unlock()
			panic(ControlHijack{})
		}
		m.cond.Wait()
	}
}

// transitionLocked wakes every parked routine which can run again, then
// notifies waiters of the change.  It must be called with m.mu held.
func (m *Manager) transitionLocked() {
	for woke := true; woke; {
		woke = false
		for _, r := range m.routines {
			if r.state == routineParked && r.until != nil && r.until() {
				r.state = routineRunning
				r.until = nil
				woke = true
			}
		}
	}

	m.cond.Broadcast()
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// spawnLocked starts fn in a new routine.  onDone is called with m.mu held
// once fn returns without panicking.
func (m *Manager) spawnLocked(ctx context.Context, fn func(ctx context.Context), onDone func()) *routine {
	r := &routine{state: routineRunning}
	m.routines = append(m.routines, r)
	rctx := context.WithValue(ctx, routineCtxKey, r)

	go func() {
		defer func() {
			rec := recover()

			m.mu.Lock()
			defer m.mu.Unlock()

			if rec != nil {
				if _, ok := rec.(ControlHijack); !ok && m.panicErr == nil {
					m.panicErr = sdkerrors.PanicError{Value: rec, Stack: string(debug.Stack())}
				}
			} else if onDone != nil {
				onDone()
			}
			r.state = routineDone
			r.until = nil
			m.transitionLocked()
		}()

		fn(rctx)
	}()

	return r
}
