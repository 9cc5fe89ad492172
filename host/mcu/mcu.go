// Package mcu is the host side of the sensorslave command link.
package mcu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"sensorslave/host/serial"
	"sensorslave/protocol"
)

var (
	ErrUnknownCommand = errors.New("command not in dictionary")
	ErrArgCount       = errors.New("wrong number of command arguments")
	ErrClosed         = errors.New("connection closed")
)

// Bootstrap IDs, fixed before the dictionary is known
const (
	identifyResponseID = 0
	identifyID         = 1
	identifyChunk      = 40
)

// Message is one decoded response from the MCU
type Message struct {
	Name   string
	Params map[string]uint32
	Data   []byte
}

// Get returns a numeric parameter, or 0 if absent
func (m *Message) Get(name string) uint32 {
	return m.Params[name]
}

// Dictionary represents the parsed MCU dictionary
type Dictionary struct {
	Version   string            `json:"version"`
	MCU       string            `json:"mcu"`
	Config    map[string]string `json:"config"`
	Commands  map[string]int    `json:"commands"`
	Responses map[string]int    `json:"responses"`
}

// msgFormat is a command or response entry split into name and fields
type msgFormat struct {
	id     uint16
	name   string
	fields []field
}

type field struct {
	name  string
	bytes bool
}

func parseFormat(id uint16, entry string) msgFormat {
	parts := strings.Fields(entry)
	f := msgFormat{id: id}
	if len(parts) == 0 {
		return f
	}
	f.name = parts[0]
	for _, p := range parts[1:] {
		name, kind, _ := strings.Cut(p, "=")
		f.fields = append(f.fields, field{name: name, bytes: kind == "%*s" || kind == "%.*s"})
	}
	return f
}

// MCU represents a connection to the sensorslave firmware
type MCU struct {
	port serial.Port
	log  *slog.Logger

	txMu  sync.Mutex
	tx    *protocol.Framer
	txBuf *protocol.ScratchOutput

	rx     *protocol.Framer
	rxFifo *protocol.FifoBuffer

	mu        sync.RWMutex
	commands  map[string]msgFormat
	responses map[uint16]msgFormat

	dictionary     *Dictionary
	dictionaryData []byte

	callMu sync.Mutex
	msgs   chan *Message
	done   chan struct{}
	err    error
}

// Connect opens device and starts the reader
func Connect(device string, log *slog.Logger) (*MCU, error) {
	return ConnectWithConfig(serial.DefaultConfig(device), log)
}

// ConnectWithConfig opens a serial port with a custom config
func ConnectWithConfig(cfg *serial.Config, log *slog.Logger) (*MCU, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return New(port, log), nil
}

// New starts a client on an already open port
func New(port serial.Port, log *slog.Logger) *MCU {
	if log == nil {
		log = slog.Default()
	}
	m := &MCU{
		port:   port,
		log:    log,
		txBuf:  protocol.NewScratchOutput(),
		rxFifo: protocol.NewFifoBuffer(4096),
		msgs:   make(chan *Message, 64),
		done:   make(chan struct{}),
		commands: map[string]msgFormat{
			"identify": parseFormat(identifyID, "identify offset=%u count=%c"),
		},
		responses: map[uint16]msgFormat{
			identifyResponseID: parseFormat(identifyResponseID, "identify_response offset=%u data=%*s"),
		},
	}
	m.tx = protocol.NewFramer(m.txBuf, nil)
	m.rx = protocol.NewFramer(nil, m.handleFrame)
	go m.readLoop()
	return m
}

// Close closes the port and stops the reader
func (m *MCU) Close() error {
	return m.port.Close()
}

// Done is closed when the reader stops
func (m *MCU) Done() <-chan struct{} {
	return m.done
}

// Err returns the error that stopped the reader. Only valid after Done.
func (m *MCU) Err() error {
	return m.err
}

func (m *MCU) readLoop() {
	defer close(m.done)
	buf := make([]byte, 256)
	for {
		n, err := m.port.Read(buf)
		data := buf[:n]
		for len(data) > 0 {
			w := m.rxFifo.Write(data)
			data = data[w:]
			m.rx.Receive(m.rxFifo)
			if w == 0 {
				// Oversized garbage; start over
				m.rxFifo.Reset()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				m.log.Warn("serial read failed", "err", err)
			}
			m.err = err
			return
		}
	}
}

// handleFrame decodes every response in a frame. The payload aliases the
// receive buffer, so byte fields are copied.
func (m *MCU) handleFrame(seq uint8, payload []byte) {
	for len(payload) > 0 {
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			m.log.Warn("bad response id", "err", err)
			return
		}
		m.mu.RLock()
		f, ok := m.responses[uint16(id)]
		m.mu.RUnlock()
		if !ok {
			m.log.Warn("unknown response", "id", id)
			return
		}
		msg := &Message{Name: f.name, Params: make(map[string]uint32, len(f.fields))}
		for _, fl := range f.fields {
			if fl.bytes {
				b, err := protocol.DecodeVLQBytes(&payload)
				if err != nil {
					m.log.Warn("truncated response", "name", f.name, "err", err)
					return
				}
				msg.Data = append([]byte(nil), b...)
				continue
			}
			v, err := protocol.DecodeVLQUint(&payload)
			if err != nil {
				m.log.Warn("truncated response", "name", f.name, "err", err)
				return
			}
			msg.Params[fl.name] = v
		}
		select {
		case m.msgs <- msg:
		default:
			m.log.Warn("response queue full, dropping", "name", msg.Name)
		}
	}
}

// Send encodes and writes one command without waiting for a response
func (m *MCU) Send(name string, args ...uint32) error {
	m.mu.RLock()
	f, ok := m.commands[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if len(args) != len(f.fields) {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrArgCount, name, len(f.fields), len(args))
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.txBuf.Reset()
	err := m.tx.SendCommand(f.id, func(output protocol.OutputBuffer) {
		for _, a := range args {
			protocol.EncodeVLQUint(output, a)
		}
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if _, err := m.port.Write(m.txBuf.Result()); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// drain discards responses left over from earlier calls
func (m *MCU) drain() {
	for {
		select {
		case <-m.msgs:
		default:
			return
		}
	}
}

// wait returns the next response named response
func (m *MCU) wait(ctx context.Context, response string) (*Message, error) {
	for {
		select {
		case msg := <-m.msgs:
			if msg.Name == response {
				return msg, nil
			}
			m.log.Debug("unsolicited response", "name", msg.Name)
		case <-m.done:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", response, ctx.Err())
		}
	}
}

// Call sends a command and waits for the named response
func (m *MCU) Call(ctx context.Context, name, response string, args ...uint32) (*Message, error) {
	m.callMu.Lock()
	defer m.callMu.Unlock()
	m.drain()
	if err := m.Send(name, args...); err != nil {
		return nil, err
	}
	return m.wait(ctx, response)
}

// collect sends name, then a get_clock marker, and returns every response
// named response that arrives before the clock reply.
func (m *MCU) collect(ctx context.Context, name, response string, args ...uint32) ([]*Message, error) {
	m.callMu.Lock()
	defer m.callMu.Unlock()
	m.drain()
	if err := m.Send(name, args...); err != nil {
		return nil, err
	}
	if err := m.Send("get_clock"); err != nil {
		return nil, err
	}
	var out []*Message
	for {
		select {
		case msg := <-m.msgs:
			switch msg.Name {
			case response:
				out = append(out, msg)
			case "clock":
				return out, nil
			}
		case <-m.done:
			return out, ErrClosed
		case <-ctx.Done():
			return out, fmt.Errorf("waiting for %s: %w", response, ctx.Err())
		}
	}
}

// RetrieveDictionary reads the dictionary in identify chunks and learns the
// command and response IDs from it
func (m *MCU) RetrieveDictionary(ctx context.Context) error {
	var dict bytes.Buffer
	offset := uint32(0)
	for {
		msg, err := m.Call(ctx, "identify", "identify_response", offset, identifyChunk)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		if msg.Get("offset") != offset {
			return fmt.Errorf("identify reply for offset %d, want %d", msg.Get("offset"), offset)
		}
		dict.Write(msg.Data)
		offset += uint32(len(msg.Data))
		if len(msg.Data) < identifyChunk {
			break
		}
	}
	m.log.Debug("dictionary retrieved", "bytes", dict.Len())
	return m.loadDictionary(dict.Bytes())
}

func (m *MCU) loadDictionary(data []byte) error {
	var d Dictionary
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}

	commands := make(map[string]msgFormat, len(d.Commands))
	for entry, id := range d.Commands {
		f := parseFormat(uint16(id), entry)
		commands[f.name] = f
	}
	responses := make(map[uint16]msgFormat, len(d.Responses))
	for entry, id := range d.Responses {
		responses[uint16(id)] = parseFormat(uint16(id), entry)
	}

	m.mu.Lock()
	m.commands = commands
	m.responses = responses
	m.dictionary = &d
	m.dictionaryData = data
	m.mu.Unlock()
	return nil
}

// GetDictionary returns the parsed dictionary, nil before RetrieveDictionary
func (m *MCU) GetDictionary() *Dictionary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dictionary
}

// GetDictionaryData returns the raw dictionary JSON
func (m *MCU) GetDictionaryData() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dictionaryData
}

// PrintDictionary writes a readable dictionary listing to w
func (m *MCU) PrintDictionary(w io.Writer) error {
	d := m.GetDictionary()
	if d == nil {
		return fmt.Errorf("dictionary not loaded")
	}
	fmt.Fprintf(w, "Version: %s\nMCU: %s\n", d.Version, d.MCU)

	fmt.Fprintf(w, "\nConfig (%d):\n", len(d.Config))
	for _, k := range sortedKeys(d.Config) {
		fmt.Fprintf(w, "  %s = %s\n", k, d.Config[k])
	}
	printIDs(w, "Commands", d.Commands)
	printIDs(w, "Responses", d.Responses)
	return nil
}

func printIDs(w io.Writer, title string, entries map[string]int) {
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(entries))
	names := make([]string, 0, len(entries))
	for k := range entries {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return entries[names[i]] < entries[names[j]] })
	for _, k := range names {
		fmt.Fprintf(w, "  [%3d] %s\n", entries[k], k)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clock returns the MCU timer value
func (m *MCU) Clock(ctx context.Context) (uint32, error) {
	msg, err := m.Call(ctx, "get_clock", "clock")
	if err != nil {
		return 0, err
	}
	return msg.Get("clock"), nil
}

// Uptime returns the time since MCU boot
func (m *MCU) Uptime(ctx context.Context) (time.Duration, error) {
	msg, err := m.Call(ctx, "get_uptime", "uptime")
	if err != nil {
		return 0, err
	}
	return time.Duration(msg.Get("ticks")) * time.Microsecond, nil
}
