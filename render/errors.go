// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package render

import "errors"

// ErrTemplateNotFound is returned, wrapped in a [TemplateError], when a
// template name is not part of the compiled set.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateError reports a template that failed to compile or could not
// be found by name. Compile failures are fatal to the Renderer being
// constructed; lookup failures are local to one Render call.
type TemplateError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	if e.Name == "" {
		return "render: template: " + e.Err.Error()
	}
	return "render: template " + e.Name + ": " + e.Err.Error()
}

// Unwrap implements the errors.Unwrap interface.
func (e *TemplateError) Unwrap() error {
	return e.Err
}

// RenderError reports that an otherwise valid template failed during
// execution, for example a strict-mode miss or a helper failure. The
// Renderer remains usable for subsequent calls.
type RenderError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return "render: executing " + e.Name + ": " + e.Err.Error()
}

// Unwrap implements the errors.Unwrap interface.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// ContextUpdateError reports a failed context mutation, which means the
// value could not be serialized.
type ContextUpdateError struct {
	Key string
	Err error
}

// Error implements the error interface.
func (e *ContextUpdateError) Error() string {
	return "render: updating context key " + e.Key + ": " + e.Err.Error()
}

// Unwrap implements the errors.Unwrap interface.
func (e *ContextUpdateError) Unwrap() error {
	return e.Err
}
