// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package render

import (
	"maps"
	"sync"

	json "github.com/goccy/go-json"
)

// renderContext is the mutable key/value state shared by every Render
// call issued through one Renderer. Values are normalized through JSON
// on insert so templates always see plain maps, slices and scalars
// regardless of the caller's concrete types.
type renderContext struct {
	mu     sync.RWMutex
	values map[string]any
}

func newRenderContext() *renderContext {
	return &renderContext{
		values: make(map[string]any),
	}
}

func (c *renderContext) insert(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var normalized any
	if err := json.Unmarshal(b, &normalized); err != nil {
		return err
	}

	c.mu.Lock()
	c.values[key] = normalized
	c.mu.Unlock()
	return nil
}

// snapshot copies the current state so an in-flight render is not
// affected by concurrent inserts.
func (c *renderContext) snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.values))
	maps.Copy(out, c.values)
	return out
}
