package repository

import (
	"github.com/google/uuid"
)

// overlay is a transaction's view of one committed table: reads fall
// through to the committed rows, writes are buffered until commit.
type overlay[T any] struct {
	base     map[uuid.UUID]T
	upserts  map[uuid.UUID]T
	deletes  map[uuid.UUID]struct{}
	rlock    func() func()
	readOnly bool
}

func newOverlay[T any](base map[uuid.UUID]T, rlock func() func(), readOnly bool) *overlay[T] {
	return &overlay[T]{
		base:     base,
		upserts:  make(map[uuid.UUID]T),
		deletes:  make(map[uuid.UUID]struct{}),
		rlock:    rlock,
		readOnly: readOnly,
	}
}

func (o *overlay[T]) get(id uuid.UUID) (T, bool) {
	var zero T
	if _, gone := o.deletes[id]; gone {
		return zero, false
	}
	if v, ok := o.upserts[id]; ok {
		return v, true
	}

	unlock := o.rlock()
	defer unlock()
	v, ok := o.base[id]
	return v, ok
}

func (o *overlay[T]) filter(keep func(T) bool) []T {
	var out []T

	unlock := o.rlock()
	for id, v := range o.base {
		if _, gone := o.deletes[id]; gone {
			continue
		}
		if _, changed := o.upserts[id]; changed {
			continue
		}
		if keep(v) {
			out = append(out, v)
		}
	}
	unlock()

	for _, v := range o.upserts {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (o *overlay[T]) put(id uuid.UUID, v T) error {
	if o.readOnly {
		return ErrReadOnly
	}
	delete(o.deletes, id)
	o.upserts[id] = v
	return nil
}

func (o *overlay[T]) remove(id uuid.UUID) error {
	if o.readOnly {
		return ErrReadOnly
	}
	delete(o.upserts, id)
	o.deletes[id] = struct{}{}
	return nil
}

// commit applies buffered writes; the caller holds the store's write lock
func (o *overlay[T]) commit() {
	for id, v := range o.upserts {
		o.base[id] = v
	}
	for id := range o.deletes {
		delete(o.base, id)
	}
}
