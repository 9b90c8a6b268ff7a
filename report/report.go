// Package report accumulates per-handle completion results and renders them.
package report

import (
	"bytes"
	"encoding/json"
	"io"
)

// Result maps handles to completion booleans, keeping insertion order.
// A handle, once written, is never overwritten.
type Result struct {
	order  []string
	values map[string]bool
}

// New returns an empty Result.
func New() *Result {
	return &Result{values: make(map[string]bool)}
}

// Set records done for handle. It returns false and leaves the existing
// value untouched if handle was already recorded.
func (r *Result) Set(handle string, done bool) bool {
	if _, ok := r.values[handle]; ok {
		return false
	}
	r.order = append(r.order, handle)
	r.values[handle] = done
	return true
}

func (r *Result) Get(handle string) (done, ok bool) {
	done, ok = r.values[handle]
	return done, ok
}

func (r *Result) Has(handle string) bool {
	_, ok := r.values[handle]
	return ok
}

func (r *Result) Len() int { return len(r.order) }

// Handles returns the recorded handles in insertion order.
func (r *Result) Handles() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// MarshalJSON renders a flat object in insertion order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, handle := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(handle)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if r.values[handle] {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WriteTo writes the result as a single JSON line.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	data, err := r.MarshalJSON()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(append(data, '\n'))
	return int64(n), err
}
