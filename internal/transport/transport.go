// Package transport abstracts how a session reaches the chat server.
// Every dialer yields a plain net.Conn carrying line-terminated text
// frames, so the session and codec stay transport-agnostic.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/coder/websocket"
)

// Dialer establishes one transport connection. Implementations must
// honor ctx cancellation during dialing.
type Dialer interface {
	Dial(ctx context.Context) (net.Conn, error)
}

// TCPDialer connects over plain TCP or TLS to host:port.
type TCPDialer struct {
	Host string
	Port int
	TLS  bool

	// TLSConfig overrides the default TLS client configuration. Nil
	// means system defaults with ServerName set from Host.
	TLSConfig *tls.Config
}

// Dial implements Dialer.
func (d *TCPDialer) Dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))

	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if !d.TLS {
		return conn, nil
	}

	cfg := d.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{ServerName: d.Host}
	}
	tlsConn := tls.Client(conn, cfg)
	if deadline, ok := ctx.Deadline(); ok {
		_ = tlsConn.SetDeadline(deadline)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
	}
	_ = tlsConn.SetDeadline(time.Time{})
	return tlsConn, nil
}

// WebSocketDialer connects to an IRC-over-WebSocket gateway and
// adapts the socket to a net.Conn. Each text frame carries one or more
// CRLF-terminated protocol lines, which is what gateways such as
// webircgateway emit.
type WebSocketDialer struct {
	// URL is the ws:// or wss:// endpoint.
	URL string
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context) (net.Conn, error) {
	ws, _, err := websocket.Dial(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", d.URL, err)
	}
	// The NetConn context scopes the connection lifetime, not the
	// dial; the session closes the conn explicitly on shutdown.
	return websocket.NetConn(context.Background(), ws, websocket.MessageText), nil
}
