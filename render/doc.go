// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package render loads HTML templates from a directory and renders them
// against a shared, lock-guarded context.
//
// Templates are discovered recursively at construction time; a file's
// name relative to the root, minus the extension, becomes its template
// name, so pages/about.html renders as "pages/about". Execution is
// strict: referencing a context key that was never inserted fails the
// render instead of producing blank output.
//
//	r, err := render.New("web/templates")
//	...
//	r.Insert("title", "Hello")
//	html, err := r.Render("pages/index")
//
// Every template can call digest_asset to produce a cache-busted asset
// URL; the version token is fixed at construction time, so client caches
// are invalidated once per deploy rather than per request.
//
// The context is shared across all renders from all goroutines. Insert
// takes an exclusive lock and Render reads a consistent snapshot, but
// there is no per-request isolation: callers needing request-scoped
// values must scope them above this package, for example with one
// Renderer per request. This is a documented limitation.
package render
