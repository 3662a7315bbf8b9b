/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scheduler

// PendingSet is an insertion ordered set of connector ids. It is not safe
// for concurrent use on its own.
type PendingSet struct {
	order []string
	index map[string]int
}

func NewPendingSet() *PendingSet {
	return &PendingSet{index: make(map[string]int)}
}

// Add queues id and reports whether it was new.
func (p *PendingSet) Add(id string) bool {
	if _, ok := p.index[id]; ok {
		return false
	}
	p.index[id] = len(p.order)
	p.order = append(p.order, id)
	return true
}

// Remove drops id if queued.
func (p *PendingSet) Remove(id string) {
	i, ok := p.index[id]
	if !ok {
		return
	}
	delete(p.index, id)
	p.order = append(p.order[:i], p.order[i+1:]...)
	for k := i; k < len(p.order); k++ {
		p.index[p.order[k]] = k
	}
}

func (p *PendingSet) Contains(id string) bool {
	_, ok := p.index[id]
	return ok
}

func (p *PendingSet) Len() int { return len(p.order) }

// Drain returns the queued ids in insertion order and empties the set.
func (p *PendingSet) Drain() []string {
	out := p.order
	p.order = nil
	p.index = make(map[string]int)
	return out
}
