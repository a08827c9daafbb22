/*
DESCRIPTION
  handle.go provides Store, a table of typed opaque handles with reference
  counting, used to refer to devices, decoders and surfaces across the API.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package handle provides a store of typed, reference counted opaque
// handles.
package handle

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// Handle is an opaque object reference.
type Handle uint32

// Invalid is never returned by Create.
const Invalid Handle = 0xffffffff

// Type tags the object a handle refers to.
type Type int

// Object types.
const (
	None Type = iota
	Device
	Decoder
	VideoSurface
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Device:
		return "device"
	case Decoder:
		return "decoder"
	case VideoSurface:
		return "video surface"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ErrInvalidHandle is returned for handles that do not exist, have been
// destroyed or have an unexpected type.
var ErrInvalidHandle = errors.New("invalid handle")

type entry struct {
	obj       interface{}
	typ       Type
	refs      int
	destroyed bool
	free      func()
}

// Store is a table of handles safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[Handle]*entry
	next    Handle
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[Handle]*entry), next: 1}
}

// Create adds obj with type t and returns its handle. free, which may be
// nil, is called once the handle has been destroyed and all references
// obtained by Get released.
func (s *Store) Create(t Type, obj interface{}, free func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		h := s.next
		s.next++
		if s.next == Invalid {
			s.next = 1
		}
		if _, ok := s.entries[h]; !ok && h != Invalid {
			s.entries[h] = &entry{obj: obj, typ: t, free: free}
			return h
		}
	}
}

// Get returns the object for h, which must have type t, and takes a
// reference to it that must be returned with Release.
func (s *Store) Get(h Handle, t Type) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[h]
	if !ok || e.destroyed {
		return nil, errors.Wrapf(ErrInvalidHandle, "handle %d", h)
	}
	if e.typ != t {
		return nil, errors.Wrapf(ErrInvalidHandle, "handle %d is %s, want %s", h, e.typ, t)
	}
	e.refs++
	return e.obj, nil
}

// Release returns a reference taken by Get.
func (s *Store) Release(h Handle) {
	s.mu.Lock()
	e, ok := s.entries[h]
	if !ok || e.refs == 0 {
		s.mu.Unlock()
		return
	}
	e.refs--
	free := s.collect(h, e)
	s.mu.Unlock()
	if free != nil {
		free()
	}
}

// Destroy invalidates h. The object's free function runs once no
// references remain.
func (s *Store) Destroy(h Handle) error {
	s.mu.Lock()
	e, ok := s.entries[h]
	if !ok || e.destroyed {
		s.mu.Unlock()
		return errors.Wrapf(ErrInvalidHandle, "handle %d", h)
	}
	e.destroyed = true
	free := s.collect(h, e)
	s.mu.Unlock()
	if free != nil {
		free()
	}
	return nil
}

// collect removes a destroyed, unreferenced entry and returns its free
// function. s.mu must be held.
func (s *Store) collect(h Handle, e *entry) func() {
	if !e.destroyed || e.refs > 0 {
		return nil
	}
	delete(s.entries, h)
	if e.free == nil {
		return func() {}
	}
	return e.free
}

// Type returns the type of h, or None if h is not valid.
func (s *Store) Type(h Handle) Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[h]
	if !ok || e.destroyed {
		return None
	}
	return e.typ
}

// Len returns the number of handles in the store, including destroyed
// handles with outstanding references.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
