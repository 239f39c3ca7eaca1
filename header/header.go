// Package header implements the case-insensitive, order-preserving
// key/value store used to model NNTP article headers (spec section 3,
// Header).
package header

import "strings"

type entry struct {
	key   string // original case, as first supplied
	value string
}

// Header is a case-insensitive, order-preserving mapping from header name
// to value. The zero value is ready to use.
type Header struct {
	order []string // lowercased keys, insertion order
	data  map[string]entry
}

// New returns an empty Header.
func New() *Header {
	return &Header{data: make(map[string]entry)}
}

func (h *Header) ensure() {
	if h.data == nil {
		h.data = make(map[string]entry)
	}
}

// Set stores value under key, preserving key's case for output. If key
// already exists (case-insensitively) its original case and position are
// kept, only the value changes.
func (h *Header) Set(key, value string) {
	h.ensure()
	lk := strings.ToLower(key)
	if e, ok := h.data[lk]; ok {
		e.value = value
		h.data[lk] = e
		return
	}
	h.data[lk] = entry{key: key, value: value}
	h.order = append(h.order, lk)
}

// Get returns the value stored for key (case-insensitive), or "" if absent.
func (h *Header) Get(key string) string {
	if h.data == nil {
		return ""
	}
	return h.data[strings.ToLower(key)].value
}

// Has reports whether key is present (case-insensitive).
func (h *Header) Has(key string) bool {
	if h.data == nil {
		return false
	}
	_, ok := h.data[strings.ToLower(key)]
	return ok
}

// Del removes key (case-insensitive), if present.
func (h *Header) Del(key string) {
	if h.data == nil {
		return
	}
	lk := strings.ToLower(key)
	if _, ok := h.data[lk]; !ok {
		return
	}
	delete(h.data, lk)
	for i, k := range h.order {
		if k == lk {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of distinct header names.
func (h *Header) Len() int {
	return len(h.order)
}

// Keys returns header names in insertion order, in their original case.
func (h *Header) Keys() []string {
	out := make([]string, 0, len(h.order))
	for _, lk := range h.order {
		out = append(out, h.data[lk].key)
	}
	return out
}

// Each calls fn for every header in insertion order.
func (h *Header) Each(fn func(key, value string)) {
	for _, lk := range h.order {
		e := h.data[lk]
		fn(e.key, e.value)
	}
}

// Copy returns a deep copy that shares no state with h.
func (h *Header) Copy() *Header {
	c := New()
	c.order = append([]string(nil), h.order...)
	c.data = make(map[string]entry, len(h.data))
	for k, v := range h.data {
		c.data[k] = v
	}
	return c
}
