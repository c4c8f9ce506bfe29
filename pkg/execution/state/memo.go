package state

import (
	"encoding/json"
	"fmt"
)

// MemoizedOp is a completed op from the orchestrator's history.  Exactly one
// of Data or Error is set;  a nil Data with no Error is a valid result, eg.
// a waitForEvent which timed out.
type MemoizedOp struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

func (m MemoizedOp) HasError() bool {
	return len(m.Error) > 0 && string(m.Error) != "null"
}

// Envelope decodes the {data}|{error} envelope recorded for run and invoke
// results.  Ops which already carry an error, and values which aren't an
// envelope, are returned unchanged.
func (m MemoizedOp) Envelope() MemoizedOp {
	if m.HasError() || len(m.Data) == 0 {
		return m
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(m.Data, &fields); err != nil {
		return m
	}
	errVal, hasErr := fields["error"]
	data, hasData := fields["data"]
	switch {
	case hasErr && string(errVal) != "null":
		return MemoizedOp{ID: m.ID, Error: errVal}
	case hasData:
		return MemoizedOp{ID: m.ID, Data: data}
	}
	return m
}

// UserError decodes the memoized error.  Errors may be recorded as objects
// or as plain strings.
func (m MemoizedOp) UserError() *UserError {
	if !m.HasError() {
		return nil
	}

	ue := &UserError{}
	if err := json.Unmarshal(m.Error, ue); err == nil && ue.Message != "" {
		if ue.Name == "" {
			ue.Name = "Error"
		}
		return ue
	}

	var msg string
	if err := json.Unmarshal(m.Error, &msg); err == nil {
		return &UserError{Name: "Error", Message: msg}
	}
	return &UserError{Name: "Error", Message: string(m.Error)}
}

// OpStack is the orchestrator-supplied history of completed ops, in the
// order in which they completed.
type OpStack []MemoizedOp

// IDs returns the op IDs in stack order.
func (s OpStack) IDs() []string {
	ids := make([]string, len(s))
	for i, op := range s {
		ids[i] = op.ID
	}
	return ids
}

// Memo maps op IDs to their completed results.  It's built once per request
// and is never modified.
type Memo struct {
	entries map[string]MemoizedOp
}

// NewMemo builds a Memo from the given stack, returning an error if the stack
// contains empty or duplicate IDs.
func NewMemo(stack OpStack) (Memo, error) {
	m := Memo{entries: make(map[string]MemoizedOp, len(stack))}
	for n, op := range stack {
		if op.ID == "" {
			return Memo{}, fmt.Errorf("op at position %d has no id", n)
		}
		if _, ok := m.entries[op.ID]; ok {
			return Memo{}, fmt.Errorf("duplicate op %s in stack at position %d", op.ID, n)
		}
		m.entries[op.ID] = op
	}
	return m, nil
}

func (m Memo) Lookup(id string) (MemoizedOp, bool) {
	op, ok := m.entries[id]
	return op, ok
}

func (m Memo) Len() int {
	return len(m.entries)
}
