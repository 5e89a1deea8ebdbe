package intake

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"quote-streamer/src/codec"
	"quote-streamer/src/helpers"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"
)

const maxDatagram = 2048

// KeepAliveSink receives keep-alives for canonical subscriber keys.
type KeepAliveSink interface {
	Update(key models.SubscriberKey)
}

// UDPEndpoint owns the data socket. Quotes leave through Send and keep-alives
// arrive through ServeKeepAlives on the same port.
type UDPEndpoint struct {
	conn   *net.UDPConn
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

// ListenUDP binds the data socket on addr ("host:port").
func ListenUDP(addr string, log *logger.Logger) (*UDPEndpoint, error) {
	ap, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, helpers.NewTransportError(fmt.Sprintf("resolve %s", addr), err)
	}
	conn, err := net.ListenUDP("udp", ap)
	if err != nil {
		return nil, helpers.NewTransportError(fmt.Sprintf("bind udp %s", addr), err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &UDPEndpoint{conn: conn, logger: log}, nil
}

func (u *UDPEndpoint) Name() string { return "udp" }

// LocalAddr returns the bound address.
func (u *UDPEndpoint) LocalAddr() netip.AddrPort {
	return u.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Send writes one datagram to key.
func (u *UDPEndpoint) Send(key models.SubscriberKey, payload []byte) error {
	if _, err := u.conn.WriteToUDPAddrPort(payload, key); err != nil {
		return helpers.NewTransportError(fmt.Sprintf("send to %s", key), err)
	}
	return nil
}

// Close releases the socket and ends ServeKeepAlives.
func (u *UDPEndpoint) Close() error {
	return u.conn.Close()
}

// -----------------------------------------------------------------------------

// ServeKeepAlives reads datagrams until ctx is cancelled or the socket is
// closed. A datagram starting with the PING marker refreshes the sender's key;
// the declared port wins over the source port. Other datagrams are ignored.
func (u *UDPEndpoint) ServeKeepAlives(ctx context.Context, sink KeepAliveSink) error {
	go func() {
		<-ctx.Done()
		u.conn.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, src, err := u.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// ICMP port unreachable from a vanished client surfaces here on some platforms
			u.logger.Debug("UDP read error: %v", err)
			continue
		}

		port, ok := codec.ParseKeepAlive(buf[:n])
		if !ok {
			u.logger.Debug("Ignoring %d-byte datagram from %s", n, src)
			continue
		}
		if port == 0 {
			port = src.Port()
		}
		key := models.NewSubscriberKey(src.Addr(), port)
		sink.Update(key)
		u.logger.Debug("Keep-alive from %s", key)
	}
}
