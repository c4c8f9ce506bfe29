package logger

import (
	"context"
	"log/slog"
	"sync"
)

// Proxy is a slog.Handler which buffers records for the duration of a tick.
//
// Records written while the proxy is disabled are dropped: the function is
// replaying memoized history and already logged them on a previous tick.
// Flush writes the buffer to the wrapped handler exactly once; anything
// written or flushed afterwards is discarded.
type Proxy struct {
	*proxyState
	// chain holds the WithAttrs and WithGroup calls made on this handler, in
	// order, replayed onto the wrapped handler when flushing.
	chain []func(slog.Handler) slog.Handler
}

type proxyState struct {
	mu      sync.Mutex
	next    slog.Handler
	enabled bool
	flushed bool
	buf     []bufferedRecord
}

type bufferedRecord struct {
	ctx    context.Context
	record slog.Record
	chain  []func(slog.Handler) slog.Handler
}

// NewProxy returns a disabled proxy wrapping next.
func NewProxy(next slog.Handler) *Proxy {
	return &Proxy{proxyState: &proxyState{next: next}}
}

// Enable starts buffering records.
func (p *Proxy) Enable() {
	p.mu.Lock()
	p.enabled = true
	p.mu.Unlock()
}

func (p *Proxy) Enabled(ctx context.Context, l slog.Level) bool {
	return p.next.Enabled(ctx, l)
}

func (p *Proxy) Handle(ctx context.Context, r slog.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled || p.flushed {
		return nil
	}
	p.buf = append(p.buf, bufferedRecord{
		ctx:    ctx,
		record: r.Clone(),
		chain:  p.chain,
	})
	return nil
}

func (p *Proxy) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return p
	}
	return p.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (p *Proxy) WithGroup(name string) slog.Handler {
	if name == "" {
		return p
	}
	return p.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (p *Proxy) with(fn func(slog.Handler) slog.Handler) *Proxy {
	chain := make([]func(slog.Handler) slog.Handler, len(p.chain), len(p.chain)+1)
	copy(chain, p.chain)
	return &Proxy{proxyState: p.proxyState, chain: append(chain, fn)}
}

// Buffered returns the number of records waiting to be flushed.
func (p *Proxy) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

// Flush writes every buffered record to the wrapped handler.  Only the first
// call has any effect.
func (p *Proxy) Flush() error {
	p.mu.Lock()
	if p.flushed {
		p.mu.Unlock()
		return nil
	}
	p.flushed = true
	buf := p.buf
	p.buf = nil
	p.mu.Unlock()

	var err error
	for _, b := range buf {
		h := p.next
		for _, fn := range b.chain {
			h = fn(h)
		}
		if !h.Enabled(b.ctx, b.record.Level) {
			continue
		}
		if herr := h.Handle(b.ctx, b.record); herr != nil && err == nil {
			err = herr
		}
	}
	return err
}
