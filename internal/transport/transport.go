// SPDX-License-Identifier: MIT
//
// Package transport carries pipeline notifications to whoever is watching:
// websocket clients, the log, UDP listeners.
package transport

import (
	"errors"
)

// Transport defines a generic interface for sending events.
// Implementations must be safe for concurrent use and must not block the
// caller for long; the pipeline sends from its consumer goroutines.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans every Send out to all of its members.
type Multi []Transport

func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if t == nil {
			continue
		}
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if t == nil {
			continue
		}
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard accepts and drops everything.
type Discard struct{}

func (Discard) Send(any) error { return nil }
func (Discard) Close() error   { return nil }

var (
	_ Transport = Multi(nil)
	_ Transport = Discard{}
)
