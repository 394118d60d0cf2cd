/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package netutil contains network helpers for outbound connections.
package netutil

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

// NewCustomDNSResolver creates a resolver that queries the given DNS servers ("host:port") in turn.
// The httpclient package plugs it into the dialer of the Dome transport when dome.client.dns.servers is set.
func NewCustomDNSResolver(addrs []string, timeout time.Duration) *net.Resolver {
	var (
		idx      = uint32(0)
		addrsLen = uint32(len(addrs)) //nolint:gosec // address count is reasonable
	)

	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}

			addr := addrs[(atomic.AddUint32(&idx, 1)-1)%addrsLen]

			return d.DialContext(ctx, "udp", addr)
		},
	}
}
