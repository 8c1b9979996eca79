// Package link simulates a bandwidth-starved radio link over an ordinary
// TCP or UDP socket.
//
// The throttle is applied at the application layer: before a packet is
// written, the sender waits long enough that sustained throughput across
// many sends converges to the configured bitrate. Throttling is per whole
// packet, never per byte. The delay is the one intentional blocking point
// in the send path and honors context cancellation.
//
// TCP carries length-prefixed frames (4-byte big-endian) because the
// stream has no message boundaries; UDP datagrams are frames already and
// carry no prefix.
package link

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBitrate is the canonical Janus link speed: 300 bits per second,
// the classic acoustic-coupler baud rate.
const DefaultBitrate = 300

// maxFrameSize bounds a single frame. Janus packets are tens of bytes;
// anything near this limit is a corrupt or hostile length prefix.
const maxFrameSize = 64 * 1024

// TransportError reports a connection-level failure. The link does not
// retry: retry policy belongs to the caller, and an utterance lost to the
// link is simply gone.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("link: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Throttle paces transmissions so that sustained throughput converges to
// a target bitrate. It is safe for concurrent use.
type Throttle struct {
	limiter *rate.Limiter
	bps     int
}

// NewThrottle returns a throttle for the given bitrate in bits per
// second.
func NewThrottle(bitsPerSecond int) *Throttle {
	if bitsPerSecond <= 0 {
		bitsPerSecond = DefaultBitrate
	}
	bytesPerSecond := rate.Limit(float64(bitsPerSecond) / 8)
	return &Throttle{
		limiter: rate.NewLimiter(bytesPerSecond, maxFrameSize),
		bps:     bitsPerSecond,
	}
}

// Bitrate returns the configured bitrate in bits per second.
func (t *Throttle) Bitrate() int { return t.bps }

// Wait blocks for the transmission time of n bytes at the configured
// rate, or until the context is canceled. Idle time between packets earns
// no credit: tokens accumulated while the link was quiet are drained
// before the reservation, so every packet pays its full airtime even
// after a long pause. n == 0 returns immediately.
func (t *Throttle) Wait(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if n > maxFrameSize {
		return fmt.Errorf("link: throttle: %d bytes exceeds frame limit", n)
	}
	if tok := t.limiter.Tokens(); tok >= 1 {
		t.limiter.AllowN(time.Now(), int(tok))
	}
	return t.limiter.WaitN(ctx, n)
}

// Sender is the transmit side of a simulated link.
type Sender struct {
	throttle *Throttle
	datagram bool

	mu   sync.Mutex
	conn net.Conn
}

// Dial connects the transmit side of a link. Network is "tcp" or "udp".
func Dial(ctx context.Context, network, addr string, bitsPerSecond int) (*Sender, error) {
	switch network {
	case "tcp", "udp":
	default:
		return nil, fmt.Errorf("link: unsupported network %q", network)
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, &TransportError{Op: "dial " + addr, Err: err}
	}
	return NewSender(conn, network == "udp", bitsPerSecond), nil
}

// NewSender wraps an established connection with a link throttle.
// datagram selects UDP-style framing (no length prefix).
func NewSender(conn net.Conn, datagram bool, bitsPerSecond int) *Sender {
	return &Sender{
		throttle: NewThrottle(bitsPerSecond),
		datagram: datagram,
		conn:     conn,
	}
}

// Send transmits one payload over the link, delaying first so that the
// framed byte count is paid for at the configured bitrate. It returns the
// number of bytes put on the wire, including framing. Empty payloads are
// ignored and incur no delay.
func (s *Sender) Send(ctx context.Context, payload []byte) (int, error) {
	if len(payload) == 0 {
		return 0, nil
	}

	frame := payload
	if !s.datagram {
		frame = make([]byte, 4+len(payload))
		binary.BigEndian.PutUint32(frame, uint32(len(payload)))
		copy(frame[4:], payload)
	}

	if err := s.throttle.Wait(ctx, len(frame)); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return 0, &TransportError{Op: "send", Err: net.ErrClosed}
	}
	if _, err := s.conn.Write(frame); err != nil {
		return 0, &TransportError{Op: "send", Err: err}
	}
	return len(frame), nil
}

// Bitrate returns the configured link bitrate in bits per second.
func (s *Sender) Bitrate() int { return s.throttle.Bitrate() }

// Close closes the underlying connection.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Receiver is the receive side of a simulated link. For TCP it accepts
// one peer at a time and reads length-prefixed frames; for UDP each
// datagram is one frame.
type Receiver struct {
	listener net.Listener   // tcp only
	packet   net.PacketConn // udp only

	mu   sync.Mutex
	conn net.Conn // current accepted tcp conn
	buf  []byte
}

// Listen binds the receive side of a link on the given address.
// Failure to bind is fatal to engine startup and is returned to the
// caller rather than retried.
func Listen(network, addr string) (*Receiver, error) {
	switch network {
	case "tcp":
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, &TransportError{Op: "listen " + addr, Err: err}
		}
		return &Receiver{listener: l}, nil
	case "udp":
		pc, err := net.ListenPacket("udp", addr)
		if err != nil {
			return nil, &TransportError{Op: "listen " + addr, Err: err}
		}
		return &Receiver{packet: pc, buf: make([]byte, maxFrameSize)}, nil
	default:
		return nil, fmt.Errorf("link: unsupported network %q", network)
	}
}

// Addr returns the bound local address.
func (r *Receiver) Addr() net.Addr {
	if r.listener != nil {
		return r.listener.Addr()
	}
	return r.packet.LocalAddr()
}

// RecvFrame blocks until the next whole frame arrives and returns its
// payload. When a TCP peer disconnects, the receiver goes back to
// accepting so a sender may reconnect.
func (r *Receiver) RecvFrame() ([]byte, error) {
	if r.packet != nil {
		n, _, err := r.packet.ReadFrom(r.buf)
		if err != nil {
			return nil, &TransportError{Op: "recv", Err: err}
		}
		frame := make([]byte, n)
		copy(frame, r.buf[:n])
		return frame, nil
	}

	for {
		conn, err := r.currentConn()
		if err != nil {
			return nil, err
		}
		frame, err := readFrame(conn)
		if err == nil {
			return frame, nil
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// Peer hung up; wait for the next connection.
			r.dropConn(conn)
			continue
		}
		return nil, &TransportError{Op: "recv", Err: err}
	}
}

func (r *Receiver) currentConn() (net.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return r.conn, nil
	}
	conn, err := r.listener.Accept()
	if err != nil {
		return nil, &TransportError{Op: "accept", Err: err}
	}
	r.conn = conn
	return conn, nil
}

func (r *Receiver) dropConn(conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == conn {
		conn.Close()
		r.conn = nil
	}
}

// Close shuts down the receiver and any accepted connection.
func (r *Receiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
	if r.listener != nil {
		err = r.listener.Close()
	}
	if r.packet != nil {
		err = r.packet.Close()
	}
	return err
}

// readFrame reads one length-prefixed frame from a stream. TCP reads can
// fragment, so both the prefix and the payload use exact-read loops.
func readFrame(conn net.Conn) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n == 0 || n > maxFrameSize {
		return nil, fmt.Errorf("invalid frame length %d", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
