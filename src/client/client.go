// Package client is the reference subscriber: it requests a stream over the
// command channel, keeps it alive from its data socket and decodes quotes.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"quote-streamer/src/codec"
	"quote-streamer/src/helpers"
	"quote-streamer/src/interfaces"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"
)

const (
	DefaultKeepAlive = 2 * time.Second
	dialTimeout      = 5 * time.Second
	readPoll         = time.Second
)

// Options configures a QuoteClient.
type Options struct {
	ServerHost  string
	CommandPort int
	DataPort    int
	ListenPort  int // 0 picks a free port
	Symbols     []models.Symbol
	Codec       interfaces.IQuoteCodec
	KeepAlive   time.Duration
}

// QuoteClient owns the local data socket.
type QuoteClient struct {
	opts   Options
	conn   *net.UDPConn
	server *net.UDPAddr
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

// New binds the data socket. A listen port equal to the server data port is
// replaced by a free one, since both may run on the same host.
func New(opts Options, log *logger.Logger) (*QuoteClient, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Codec == nil {
		opts.Codec = codec.JSONCodec{}
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if len(opts.Symbols) == 0 {
		return nil, helpers.NewConfigurationError("no symbols to subscribe", nil)
	}

	listen := opts.ListenPort
	if listen == opts.DataPort {
		log.Warning("Listen port %d matches the server data port; using a free port", listen)
		listen = 0
	}

	server, err := net.ResolveUDPAddr("udp", net.JoinHostPort(opts.ServerHost, strconv.Itoa(opts.DataPort)))
	if err != nil {
		return nil, helpers.NewConfigurationError("resolve server data address", err)
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: listen})
	if err != nil {
		return nil, helpers.NewTransportError(fmt.Sprintf("bind data port %d", listen), err)
	}

	return &QuoteClient{opts: opts, conn: conn, server: server, logger: log}, nil
}

// LocalPort is the port quotes are delivered to.
func (c *QuoteClient) LocalPort() uint16 {
	return c.conn.LocalAddr().(*net.UDPAddr).AddrPort().Port()
}

func (c *QuoteClient) Close() error {
	return c.conn.Close()
}

// -----------------------------------------------------------------------------

// Subscribe sends the subscription command and waits for the server's ack.
func (c *QuoteClient) Subscribe(ctx context.Context) (models.MCommandAck, error) {
	addr := net.JoinHostPort(c.opts.ServerHost, strconv.Itoa(c.opts.CommandPort))
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return models.MCommandAck{}, helpers.NewTransportError("connect "+addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(dialTimeout))

	// 1. Send the command; the declared address is informational
	local := conn.LocalAddr().(*net.TCPAddr).AddrPort().Addr().Unmap()
	payload, err := codec.EncodeCommand(models.MSubscribeCommand{
		Address:  local.String(),
		DataPort: c.LocalPort(),
		Symbols:  c.opts.Symbols,
	})
	if err != nil {
		return models.MCommandAck{}, err
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return models.MCommandAck{}, helpers.NewTransportError("send subscribe", err)
	}

	// 2. Read the ack line
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return models.MCommandAck{}, helpers.NewTransportError("read ack", err)
	}
	ack, err := codec.DecodeAck(line)
	if err != nil {
		return models.MCommandAck{}, err
	}
	if ack.Status != "ok" {
		return ack, fmt.Errorf("subscription rejected: %s", ack.Error)
	}
	if len(ack.Rejected) > 0 {
		c.logger.Warning("Server does not support %v", ack.Rejected)
	}
	c.logger.Info("Subscribed as %s (id %s) to %v", ack.Key, ack.SubscriptionID, ack.Symbols)
	return ack, nil
}

// -----------------------------------------------------------------------------

// Run sends keep-alives and hands every decoded quote to onQuote until ctx is
// cancelled.
func (c *QuoteClient) Run(ctx context.Context, onQuote func(models.MQuote)) error {
	go c.keepAlive(ctx)

	buf := make([]byte, 2048)
	for {
		if ctx.Err() != nil {
			return nil
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readPoll))
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			// a refused keep-alive comes back as a read error on some platforms
			c.logger.Debug("Receive error: %v", err)
			continue
		}
		q, err := c.opts.Codec.DecodeQuote(buf[:n])
		if err != nil {
			c.logger.Debug("Ignoring undecodable datagram (%d bytes): %v", n, err)
			continue
		}
		onQuote(q)
	}
}

func (c *QuoteClient) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(c.opts.KeepAlive)
	defer ticker.Stop()

	ping := codec.KeepAliveDatagram(c.LocalPort())
	send := func() {
		if _, err := c.conn.WriteToUDP(ping, c.server); err != nil {
			c.logger.Warning("Keep-alive to %s failed: %v", c.server, err)
		}
	}

	send()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			send()
		}
	}
}
