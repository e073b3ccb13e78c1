// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package httpx

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_DefaultTimeoutAndTransport(t *testing.T) {
	client := NewClient(0)
	assert.Equal(t, defaultClientTimeout, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok, "transport type = %T", client.Transport)
	assert.Equal(t, defaultMaxIdleConns, transport.MaxIdleConns)
	assert.Equal(t, defaultMaxIdleConnsPerHost, transport.MaxIdleConnsPerHost)
	assert.Equal(t, defaultIdleConnTimeout, transport.IdleConnTimeout)
	assert.Equal(t, defaultDialTimeout, transport.TLSHandshakeTimeout)
}

func TestNewClient_ShortTimeoutCapsDial(t *testing.T) {
	client := NewClient(2 * time.Second)
	assert.Equal(t, 2*time.Second, client.Timeout)
	transport := client.Transport.(*http.Transport)
	assert.Equal(t, 2*time.Second, transport.TLSHandshakeTimeout)
}

func TestNewStreamingClient_NoTotalTimeout(t *testing.T) {
	client := NewStreamingClient()
	assert.Zero(t, client.Timeout)
	transport := client.Transport.(*http.Transport)
	assert.Equal(t, defaultResponseHeaderTimeout, transport.ResponseHeaderTimeout)
}
