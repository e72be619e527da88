// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import "errors"

// ErrSubscriberInstalled is returned, wrapped in a [SubscriberError], when
// InitSubscriber is called while a subscriber is already active in this
// process.
var ErrSubscriberInstalled = errors.New("a log subscriber is already installed for this process")

// SubscriberError reports a failure to install the global log subscriber,
// either because one is already installed or because the log export
// backend could not be initialized. It is fatal to startup.
type SubscriberError struct {
	Err error
}

// Error implements the error interface.
func (e *SubscriberError) Error() string {
	return "telemetry: subscriber: " + e.Err.Error()
}

// Unwrap implements the errors.Unwrap interface.
func (e *SubscriberError) Unwrap() error {
	return e.Err
}

// ExporterError reports a misconfigured or unbuildable exporter pipeline
// for one of the telemetry signals. It is fatal to startup when the
// corresponding init step is invoked.
type ExporterError struct {
	Signal   string
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *ExporterError) Error() string {
	return "telemetry: " + e.Signal + " exporter (" + e.Endpoint + "): " + e.Err.Error()
}

// Unwrap implements the errors.Unwrap interface.
func (e *ExporterError) Unwrap() error {
	return e.Err
}
