// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package values

import (
	"sort"

	"github.com/grailbio/base/digest"
	"github.com/grailbio/hailexpr/types"
)

type mapEntry struct {
	Key   T
	Value T
	Next  *mapEntry
}

// hashmap is a hash table keyed by values. It uses a Go map as a hash
// table based on the key's digest, which in turn stores a list of
// entries that share the same hash bucket, ordered by key.
type hashmap struct {
	kt  *types.T
	n   int
	tab map[digest.Digest]**mapEntry
}

func (m *hashmap) lookup(key T) (T, bool) {
	if m.tab == nil {
		return nil, false
	}
	entryp, ok := m.tab[Digest(key, m.kt)]
	if !ok {
		return nil, false
	}
	entry := *entryp
	for entry != nil && Less(entry.Key, key) {
		entry = entry.Next
	}
	if entry == nil || !Equal(entry.Key, key) {
		return nil, false
	}
	return entry.Value, true
}

// insert inserts the provided key-value pair into the map,
// overriding any previous definiton of the key.
func (m *hashmap) insert(key, value T) {
	d := Digest(key, m.kt)
	if m.tab == nil {
		m.tab = make(map[digest.Digest]**mapEntry)
	}
	if m.tab[d] == nil {
		entry := &mapEntry{Key: key, Value: value}
		m.n++
		m.tab[d] = &entry
		return
	}
	entryp := m.tab[d]
	for *entryp != nil && Less((*entryp).Key, key) {
		entryp = &(*entryp).Next
	}
	if *entryp == nil || !Equal((*entryp).Key, key) {
		*entryp = &mapEntry{Key: key, Value: value, Next: *entryp}
		m.n++
	} else {
		(*entryp).Value = value
	}
}

// entries returns the map's entries in key order.
func (m *hashmap) entries() []*mapEntry {
	entries := make([]*mapEntry, 0, m.n)
	for _, entryp := range m.tab {
		for entry := *entryp; entry != nil; entry = entry.Next {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return Less(entries[i].Key, entries[j].Key) })
	return entries
}

// Dict is the type of dict values.
type Dict struct {
	m hashmap
}

// NewDict returns a new, empty dictionary whose keys have type kt.
func NewDict(kt *types.T) *Dict {
	return &Dict{m: hashmap{kt: kt}}
}

// MakeDict is a convenient way to construct a dictionary from a set
// of key-value pairs.
func MakeDict(kt *types.T, kvs ...T) *Dict {
	if len(kvs)%2 != 0 {
		panic("uneven makedict")
	}
	d := NewDict(kt)
	for i := 0; i < len(kvs); i += 2 {
		d.Put(kvs[i], kvs[i+1])
	}
	return d
}

// Get looks up the provided key.
func (d *Dict) Get(key T) (T, bool) {
	return d.m.lookup(key)
}

// Put inserts the provided key-value pair into the dictionary,
// overriding any previous definition of the key.
func (d *Dict) Put(key, value T) {
	d.m.insert(key, value)
}

// Len returns the total number of entries in the dictionary.
func (d *Dict) Len() int {
	return d.m.n
}

// Each enumerates all key-value pairs in key order.
func (d *Dict) Each(fn func(k, v T)) {
	for _, e := range d.m.entries() {
		fn(e.Key, e.Value)
	}
}

// Keys returns the dictionary's keys in order.
func (d *Dict) Keys() []T {
	entries := d.m.entries()
	keys := make([]T, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// Set is the type of set values.
type Set struct {
	m hashmap
}

// NewSet returns a new set of elements of type et containing
// the provided elements.
func NewSet(et *types.T, elems ...T) *Set {
	s := &Set{m: hashmap{kt: et}}
	for _, e := range elems {
		s.Add(e)
	}
	return s
}

// Add adds an element to the set.
func (s *Set) Add(e T) {
	s.m.insert(e, nil)
}

// Contains tells whether the set contains e.
func (s *Set) Contains(e T) bool {
	_, ok := s.m.lookup(e)
	return ok
}

// Len returns the number of elements in the set.
func (s *Set) Len() int {
	return s.m.n
}

// Elems returns the set's elements in order.
func (s *Set) Elems() []T {
	entries := s.m.entries()
	elems := make([]T, len(entries))
	for i, e := range entries {
		elems[i] = e.Key
	}
	return elems
}
