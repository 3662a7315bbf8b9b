/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Entry records one committed edit of a connector. Before and After are
// opaque encodings of the connector geometry; size is estimated from both.
// TS is when the edit was committed.
type Entry struct {
	ConnectorID string
	Before      []byte
	After       []byte
	TS          time.Time
}

func (e Entry) size() int { return len(e.Before) + len(e.After) }

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerConnector limits entries kept per connector (0 means unlimited).
	MaxPerConnector int
	// MinInterval coalesces edits committed within the interval for the same
	// connector: the older Before is kept and After is replaced.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo history per connector.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[string][]Entry
	redo map[string][]Entry
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 * 1024 * 1024 // 4 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Entry), redo: make(map[string][]Entry)}
}

// Push records a committed edit. Clears the redo history of that connector.
func (m *Manager) Push(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[e.ConnectorID]
	m.dropRedoLocked(e.ConnectorID)
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if e.TS.Sub(last.TS) < m.cfg.MinInterval {
			// Coalesce: keep the state before the first edit
			m.totalBytes -= last.size()
			e.Before = last.Before
			stack[n-1] = e
			m.totalBytes += e.size()
			m.enforceCapsLocked(e.ConnectorID)
			return
		}
	}
	m.undo[e.ConnectorID] = append(stack, e)
	m.totalBytes += e.size()
	m.enforceCapsLocked(e.ConnectorID)
}

// Undo pops the latest edit of a connector and moves it to redo. The caller
// restores Entry.Before.
func (m *Manager) Undo(id string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[id]
	if len(stack) == 0 {
		return Entry{}, false
	}
	e := stack[len(stack)-1]
	m.undo[id] = stack[:len(stack)-1]
	m.redo[id] = append(m.redo[id], e)
	return e, true
}

// Redo re-applies the latest undone edit. The caller restores Entry.After.
func (m *Manager) Redo(id string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[id]
	if len(r) == 0 {
		return Entry{}, false
	}
	e := r[len(r)-1]
	m.redo[id] = r[:len(r)-1]
	m.undo[id] = append(m.undo[id], e)
	return e, true
}

// Clear drops the history of a connector, e.g. after it was removed.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.undo[id] {
		m.totalBytes -= e.size()
	}
	m.dropRedoLocked(id)
	delete(m.undo, id)
	delete(m.redo, id)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, connectors int, totalEntries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.undo {
		if len(v) > 0 {
			connectors++
		}
		totalEntries += len(v)
	}
	return m.totalBytes, connectors, totalEntries
}

func (m *Manager) dropRedoLocked(id string) {
	for _, e := range m.redo[id] {
		m.totalBytes -= e.size()
	}
	m.redo[id] = nil
}

func (m *Manager) enforceCapsLocked(id string) {
	if m.cfg.MaxPerConnector > 0 {
		stack := m.undo[id]
		if len(stack) > m.cfg.MaxPerConnector {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerConnector
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= stack[i].size()
			}
			m.undo[id] = append([]Entry{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all connectors
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestID := ""
		found := false
		var oldestTS time.Time
		for cid, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestID, oldestTS, found = cid, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestID]
		m.totalBytes -= stack[0].size()
		m.undo[oldestID] = stack[1:]
		if len(m.undo[oldestID]) == 0 {
			delete(m.undo, oldestID)
		}
	}
}
