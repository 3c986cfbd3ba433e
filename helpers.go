package welcome

import (
	"encoding/json"
	"fmt"
)

// unmarshalResponse unmarshals JSON data with consistent error formatting.
// This helper reduces boilerplate across all API response parsing.
func unmarshalResponse[T any](data []byte, resourceName string) (*T, error) {
	var resp T
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w (body: %s)", ErrMalformedResponse, resourceName, err, truncatePreview(data))
	}
	return &resp, nil
}

// truncatePreview returns a truncated string for error messages.
func truncatePreview(data []byte) string {
	s := string(data)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

// ordered is an id index that remembers insertion order, so "the first
// fetched entity" stays well defined. Items never leave the index by
// reference: every accessor hands out a copy made by clone.
type ordered[T any] struct {
	items []T
	byID  map[string]int
	clone func(*T) T
}

// newOrdered indexes items by the id key returns. Later duplicates of an id
// are dropped; the first occurrence wins. A nil clone copies items shallowly.
func newOrdered[T any](items []T, key func(*T) string, clone func(*T) T) *ordered[T] {
	if clone == nil {
		clone = func(v *T) T { return *v }
	}
	o := &ordered[T]{
		items: make([]T, 0, len(items)),
		byID:  make(map[string]int, len(items)),
		clone: clone,
	}
	for i := range items {
		id := key(&items[i])
		if _, dup := o.byID[id]; dup {
			continue
		}
		o.byID[id] = len(o.items)
		o.items = append(o.items, items[i])
	}
	return o
}

// at returns a copy of the i-th item.
func (o *ordered[T]) at(i int) *T {
	v := o.clone(&o.items[i])
	return &v
}

// get returns a copy of the item with the given id.
func (o *ordered[T]) get(id string) (*T, bool) {
	i, ok := o.byID[id]
	if !ok {
		return nil, false
	}
	return o.at(i), true
}

// first returns a copy of the first indexed item.
func (o *ordered[T]) first() (*T, bool) {
	if len(o.items) == 0 {
		return nil, false
	}
	return o.at(0), true
}

// find returns a copy of the first item, in order, matching pred.
func (o *ordered[T]) find(pred func(*T) bool) (*T, bool) {
	for i := range o.items {
		if pred(&o.items[i]) {
			return o.at(i), true
		}
	}
	return nil, false
}

// list returns copies of the items in order.
func (o *ordered[T]) list() []T {
	out := make([]T, len(o.items))
	for i := range o.items {
		out[i] = o.clone(&o.items[i])
	}
	return out
}

func (o *ordered[T]) len() int {
	return len(o.items)
}

// decodeRawList splits a JSON array into its elements, decoding each into T
// while handing back the element's raw bytes.
func decodeRawList[T any](raw []json.RawMessage, resourceName string, attach func(*T, json.RawMessage)) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		item, err := unmarshalResponse[T](r, fmt.Sprintf("%s[%d]", resourceName, i))
		if err != nil {
			return nil, err
		}
		if attach != nil {
			attach(item, r)
		}
		out = append(out, *item)
	}
	return out, nil
}
