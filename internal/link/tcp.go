// SPDX-License-Identifier: MIT
package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	applog "audiolink/internal/log"
)

// TCPConnector dials a device exposed as a raw TCP byte stream, such as a
// serial-to-network bridge.
type TCPConnector struct {
	Address string
	Timeout time.Duration
}

func (c TCPConnector) Connect(ctx context.Context) (Link, error) {
	d := net.Dialer{Timeout: c.Timeout}
	conn, err := d.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("%w: %s: %v", ErrDeviceNotFound, c.Address, err)
		}
		return nil, fmt.Errorf("link: dial %s: %w", c.Address, err)
	}
	applog.Infof("Link: Connected to %s", conn.RemoteAddr())
	return conn, nil
}
