// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package session provides multi-turn conversation contexts shared
// across tasks. A Context accumulates messages and metadata; the Manager
// guards the context map so concurrent handlers can share it.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/protolink/pkg/a2a"
)

// Context is a conversation context spanning multiple tasks.
type Context struct {
	ID           string         `json:"context_id"`
	Messages     []a2a.Message  `json:"messages"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	LastAccessed time.Time      `json:"last_accessed"`
}

// Manager owns the context map. Reads refresh LastAccessed, so every
// operation takes the write lock.
type Manager struct {
	mu       sync.Mutex
	contexts map[string]*Context
}

// NewManager creates an empty context manager.
func NewManager() *Manager {
	return &Manager{
		contexts: make(map[string]*Context),
	}
}

// Create creates a new context, optionally with a caller-chosen ID.
// An empty id gets a generated one.
func (m *Manager) Create(id string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	ctx := &Context{
		ID:           id,
		Messages:     make([]a2a.Message, 0),
		Metadata:     make(map[string]any),
		CreatedAt:    now,
		LastAccessed: now,
	}
	m.contexts[id] = ctx
	return ctx
}

// Get returns the context and refreshes its LastAccessed time.
func (m *Manager) Get(id string) (*Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.contexts[id]
	if !ok {
		return nil, false
	}
	ctx.LastAccessed = time.Now().UTC()
	return ctx, true
}

// AddMessage appends a message to the context. Returns false if the
// context does not exist.
func (m *Manager) AddMessage(id string, msg a2a.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.contexts[id]
	if !ok {
		return false
	}
	ctx.Messages = append(ctx.Messages, msg)
	ctx.LastAccessed = time.Now().UTC()
	return true
}

// MessageCount returns the number of messages in the context, or 0 if
// it does not exist.
func (m *Manager) MessageCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.contexts[id]
	if !ok {
		return 0
	}
	return len(ctx.Messages)
}

// Delete removes the context. Returns false if it did not exist.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contexts[id]; !ok {
		return false
	}
	delete(m.contexts, id)
	return true
}

// List returns the IDs of all contexts.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.contexts))
	for id := range m.contexts {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of contexts.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contexts)
}

// Clear removes all contexts.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts = make(map[string]*Context)
}
