package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"quote-streamer/src/helpers"
	"quote-streamer/src/models"
)

// Command headers and the keep-alive marker.
const (
	HeaderSubscribe = "J_QUOTE"
	HeaderPing      = "PING"
	ConnectionUDP   = "udp"
)

var (
	ErrUnknownHeader = errors.New("unknown command header")
	ErrNoSymbols     = errors.New("no supported symbols requested")
	ErrInvalidPort   = errors.New("invalid data port")
)

var pingMarker = []byte(HeaderPing)

// wireCommand is the JSON shape exchanged on the command channel.
type wireCommand struct {
	Header     string   `json:"header"`
	Connection string   `json:"connection"`
	Address    string   `json:"address"`
	Port       string   `json:"port"`
	Tickers    []string `json:"tickers"`
}

// -----------------------------------------------------------------------------

// DecodeCommand parses one control message into a subscribe or keep-alive
// command.
func DecodeCommand(data []byte) (models.MCommand, error) {
	var wc wireCommand
	if err := json.Unmarshal(bytes.TrimSpace(data), &wc); err != nil {
		return nil, helpers.NewDecodeError("invalid command JSON", err)
	}

	switch strings.ToUpper(strings.TrimSpace(wc.Header)) {
	case HeaderSubscribe:
		port, err := parsePort(wc.Port, false)
		if err != nil {
			return nil, err
		}
		cmd := models.MSubscribeCommand{
			Connection: wc.Connection,
			Address:    wc.Address,
			DataPort:   port,
		}
		for _, s := range models.ParseSymbols(wc.Tickers) {
			if s == models.Unknown {
				// ParseSymbols collapses every unsupported ticker into one Unknown entry
				cmd.Rejected = unknownTickers(wc.Tickers)
				continue
			}
			cmd.Symbols = append(cmd.Symbols, s)
		}
		if len(cmd.Symbols) == 0 {
			return nil, helpers.NewDecodeError(fmt.Sprintf("subscription for %v", wc.Tickers), ErrNoSymbols)
		}
		return cmd, nil

	case HeaderPing:
		port, err := parsePort(wc.Port, true)
		if err != nil {
			return nil, err
		}
		return models.MKeepAliveCommand{DataPort: port}, nil

	default:
		return nil, helpers.NewDecodeError(fmt.Sprintf("header %q", wc.Header), ErrUnknownHeader)
	}
}

// -----------------------------------------------------------------------------

// EncodeCommand serializes a command for the command channel.
func EncodeCommand(cmd models.MCommand) ([]byte, error) {
	var wc wireCommand
	switch c := cmd.(type) {
	case models.MSubscribeCommand:
		wc = wireCommand{
			Header:     HeaderSubscribe,
			Connection: ConnectionUDP,
			Address:    c.Address,
			Port:       strconv.Itoa(int(c.DataPort)),
			Tickers:    make([]string, len(c.Symbols)),
		}
		for i, s := range c.Symbols {
			wc.Tickers[i] = string(s)
		}
	case models.MKeepAliveCommand:
		wc = wireCommand{Header: HeaderPing, Connection: ConnectionUDP, Tickers: []string{}}
		if c.DataPort != 0 {
			wc.Port = strconv.Itoa(int(c.DataPort))
		}
	default:
		return nil, fmt.Errorf("cannot encode command %T", cmd)
	}
	return json.Marshal(wc)
}

// -----------------------------------------------------------------------------

// ParseKeepAlive recognizes a keep-alive datagram. It accepts the bare
// marker "PING", "PING <data port>", or a JSON PING command. The returned
// port is zero when the sender did not declare one.
func ParseKeepAlive(data []byte) (port uint16, ok bool) {
	if bytes.HasPrefix(data, pingMarker) {
		rest := strings.TrimSpace(string(data[len(pingMarker):]))
		if rest == "" {
			return 0, true
		}
		p, err := parsePort(rest, true)
		if err != nil {
			// marker without a usable port still counts as a ping
			return 0, true
		}
		return p, true
	}

	if len(data) > 0 && data[0] == '{' {
		cmd, err := DecodeCommand(data)
		if err != nil {
			return 0, false
		}
		if ka, isPing := cmd.(models.MKeepAliveCommand); isPing {
			return ka.DataPort, true
		}
	}
	return 0, false
}

// KeepAliveDatagram builds the datagram a client sends as keep-alive.
func KeepAliveDatagram(dataPort uint16) []byte {
	if dataPort == 0 {
		return []byte(HeaderPing)
	}
	return []byte(fmt.Sprintf("%s %d", HeaderPing, dataPort))
}

// -----------------------------------------------------------------------------

// EncodeAck serializes a command reply as one newline-terminated JSON line.
func EncodeAck(ack models.MCommandAck) []byte {
	data, err := json.Marshal(ack)
	if err != nil {
		data = []byte(`{"status":"error","error":"ack encoding failed"}`)
	}
	return append(data, '\n')
}

// DecodeAck parses a reply line written by EncodeAck.
func DecodeAck(line []byte) (models.MCommandAck, error) {
	var ack models.MCommandAck
	if err := json.Unmarshal(bytes.TrimSpace(line), &ack); err != nil {
		return models.MCommandAck{}, helpers.NewDecodeError("invalid command ack", err)
	}
	return ack, nil
}

// -----------------------------------------------------------------------------

func parsePort(raw string, optional bool) (uint16, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" && optional {
		return 0, nil
	}
	p, err := strconv.ParseUint(raw, 10, 16)
	if err != nil || p == 0 {
		return 0, helpers.NewDecodeError(fmt.Sprintf("port %q", raw), ErrInvalidPort)
	}
	return uint16(p), nil
}

func unknownTickers(raw []string) []string {
	var out []string
	for _, r := range raw {
		if models.ParseSymbol(r) == models.Unknown {
			out = append(out, r)
		}
	}
	return out
}
