/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Layers is an ordered stack of text layers; index order is paint order.
type Layers []TextLayer

// Clone returns an independent copy. TextLayer has no reference fields, so a
// slice copy is a full snapshot.
func (ls Layers) Clone() Layers {
	if ls == nil {
		return nil
	}
	out := make(Layers, len(ls))
	copy(out, ls)
	return out
}

// NextID returns an id larger than any id in the stack.
func (ls Layers) NextID() int {
	next := 1
	for _, l := range ls {
		if l.ID >= next {
			next = l.ID + 1
		}
	}
	return next
}

// Index returns the position of the layer with the given id, or -1.
func (ls Layers) Index(id int) int {
	for i, l := range ls {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Add appends a default layer and returns the new stack with its id.
func (ls Layers) Add() (Layers, int) {
	id := ls.NextID()
	return append(ls.Clone(), DefaultLayer(id)), id
}

// Duplicate inserts a copy of the layer directly above the original.
// The copy gets a fresh id. Unknown ids return the stack unchanged.
func (ls Layers) Duplicate(id int) (Layers, int, bool) {
	i := ls.Index(id)
	if i < 0 {
		return ls, 0, false
	}
	cp := ls[i]
	cp.ID = ls.NextID()
	out := make(Layers, 0, len(ls)+1)
	out = append(out, ls[:i+1]...)
	out = append(out, cp)
	out = append(out, ls[i+1:]...)
	return out, cp.ID, true
}

// Remove drops the layer with the given id.
func (ls Layers) Remove(id int) (Layers, bool) {
	i := ls.Index(id)
	if i < 0 {
		return ls, false
	}
	out := make(Layers, 0, len(ls)-1)
	out = append(out, ls[:i]...)
	out = append(out, ls[i+1:]...)
	return out, true
}
