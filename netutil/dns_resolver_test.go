/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package netutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewCustomDNSResolver(t *testing.T) {
	addrs := []string{"127.0.0.1:5301", "127.0.0.1:5302"}
	resolver := NewCustomDNSResolver(addrs, time.Second)
	require.True(t, resolver.PreferGo)

	var got []string
	for i := 0; i < 3; i++ {
		conn, err := resolver.Dial(context.Background(), "udp", "8.8.8.8:53")
		require.NoError(t, err)
		got = append(got, conn.RemoteAddr().String())
		require.NoError(t, conn.Close())
	}
	require.Equal(t, []string{"127.0.0.1:5301", "127.0.0.1:5302", "127.0.0.1:5301"}, got)
}
