// Package intake accepts subscription commands over TCP and keep-alives over
// UDP, and owns the UDP socket quotes are sent from.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"quote-streamer/src/codec"
	"quote-streamer/src/helpers"
	"quote-streamer/src/interfaces"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"
)

// ErrCommandTooLarge is returned for command messages over the size limit.
var ErrCommandTooLarge = errors.New("command exceeds size limit")

const ackWriteTimeout = 2 * time.Second

// Registrar starts a dispatcher for a subscriber.
type Registrar interface {
	Register(key models.SubscriberKey, symbols []models.Symbol, transport interfaces.ITransport) (string, error)
}

// CommandIntake serves the TCP command channel. Every connection carries one
// command and is handled in its own goroutine; a failing connection never
// affects the accept loop.
type CommandIntake struct {
	Registry    Registrar
	Liveness    KeepAliveSink
	Transport   interfaces.ITransport
	ReadTimeout time.Duration
	MaxBytes    int
	Logger      *logger.Logger

	wg sync.WaitGroup
}

// -----------------------------------------------------------------------------

// Serve accepts connections on lis until ctx is cancelled. It closes lis on
// return and waits for in-flight connections.
func (ci *CommandIntake) Serve(ctx context.Context, lis net.Listener) error {
	if ci.Logger == nil {
		ci.Logger = logger.NewNop()
	}
	go func() {
		<-ctx.Done()
		lis.Close()
	}()
	defer ci.wg.Wait()

	ci.Logger.Info("Command intake listening on %s", lis.Addr())
	var backoff time.Duration
	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// transient accept errors (EMFILE and friends) back off and retry
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff < time.Second {
				backoff *= 2
			}
			ci.Logger.Warning("Accept failed: %v; retrying in %v", err, backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		ci.wg.Add(1)
		go func() {
			defer ci.wg.Done()
			ci.handle(conn)
		}()
	}
}

// -----------------------------------------------------------------------------

func (ci *CommandIntake) handle(conn net.Conn) {
	defer closeGracefully(conn)
	peer := remoteAddrPort(conn)

	if ci.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(ci.ReadTimeout))
	}

	data, err := readCommand(conn, ci.MaxBytes)
	if err != nil {
		ci.Logger.Warning("Reading command from %s: %v", peer, err)
		ci.reply(conn, models.MCommandAck{Status: "error", Error: err.Error()})
		return
	}

	cmd, err := codec.DecodeCommand(data)
	if err != nil {
		ci.Logger.Warning("Rejected command from %s: %v", peer, err)
		ci.reply(conn, models.MCommandAck{Status: "error", Error: err.Error()})
		return
	}

	ci.reply(conn, ci.Apply(peer.Addr(), cmd))
}

// Apply executes a decoded command for a client whose observed IP is ip.
func (ci *CommandIntake) Apply(ip netip.Addr, cmd models.MCommand) models.MCommandAck {
	switch c := cmd.(type) {
	case models.MSubscribeCommand:
		key := models.NewSubscriberKey(ip, c.DataPort)
		if c.Address != "" && c.Address != ip.Unmap().String() {
			ci.Logger.Debug("Client %s declared address %q; using observed address", key, c.Address)
		}
		id, err := ci.Registry.Register(key, c.Symbols, ci.Transport)
		if err != nil {
			ci.Logger.Error("Subscription for %s failed: %v", key, err)
			return models.MCommandAck{Status: "error", Error: err.Error(), Key: key.String()}
		}
		ci.Liveness.Update(key)
		if len(c.Rejected) > 0 {
			ci.Logger.Warning("Client %s requested unsupported tickers %v", key, c.Rejected)
		}
		return models.MCommandAck{Status: "ok", SubscriptionID: id, Key: key.String(), Symbols: c.Symbols, Rejected: c.Rejected}

	case models.MKeepAliveCommand:
		if c.DataPort == 0 {
			return models.MCommandAck{Status: "error", Error: "keep-alive over tcp must declare the data port"}
		}
		key := models.NewSubscriberKey(ip, c.DataPort)
		ci.Liveness.Update(key)
		return models.MCommandAck{Status: "ok", Key: key.String()}

	default:
		return models.MCommandAck{Status: "error", Error: fmt.Sprintf("unsupported command %s", models.CommandKind(cmd))}
	}
}

// -----------------------------------------------------------------------------

func (ci *CommandIntake) reply(conn net.Conn, ack models.MCommandAck) {
	_ = conn.SetWriteDeadline(time.Now().Add(ackWriteTimeout))
	if _, err := conn.Write(codec.EncodeAck(ack)); err != nil {
		ci.Logger.Debug("Writing ack to %s: %v", conn.RemoteAddr(), err)
	}
}

// readCommand reads one JSON command. The object's closing brace ends it, so
// clients may hold the connection open without a newline or half-close.
func readCommand(r io.Reader, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = 64 * 1024
	}
	lr := &io.LimitedReader{R: r, N: int64(maxBytes) + 1}

	var raw json.RawMessage
	if err := json.NewDecoder(lr).Decode(&raw); err != nil {
		var syntax *json.SyntaxError
		switch {
		case lr.N <= 0:
			return nil, ErrCommandTooLarge
		case errors.As(err, &syntax):
			return nil, helpers.NewDecodeError("invalid command JSON", err)
		default:
			return nil, helpers.NewTransportError("read command", err)
		}
	}
	return raw, nil
}

// closeGracefully half-closes conn and discards unread input so the peer sees
// the ack before the connection goes away.
func closeGracefully(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
		_ = tc.SetReadDeadline(time.Now().Add(time.Second))
		_, _ = io.Copy(io.Discard, io.LimitReader(tc, 1<<20))
	}
	conn.Close()
}

func remoteAddrPort(conn net.Conn) netip.AddrPort {
	if tcp, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return tcp.AddrPort()
	}
	ap, _ := netip.ParseAddrPort(conn.RemoteAddr().String())
	return ap
}
