// SPDX-License-Identifier: MIT
//
// Package link opens the duplex byte stream the pipeline reads audio from.
// Pairing and link-layer setup happen outside this process; a Connector
// only knows how to reach an already available peer.
package link

import (
	"context"
	"errors"
	"io"
)

// ErrDeviceNotFound is returned when the link works but the target peer
// does not exist.
var ErrDeviceNotFound = errors.New("link: device not found")

// Link is an open connection to the audio device.
type Link interface {
	io.Reader
	io.Writer
	io.Closer
}

// Connector opens a Link. Connect must honour ctx for the duration of the
// handshake only; the returned Link outlives it.
type Connector interface {
	Connect(ctx context.Context) (Link, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (Link, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Link, error) { return f(ctx) }
