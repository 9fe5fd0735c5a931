package net

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	ucodec "github.com/ugorji/go/codec"
)

const (
	bufSize = 64 * 1024
)

/*
NetworkTransport provides a network based transport that can be used to
exchange push-pull messages with remote nodes. It requires an underlying stream
layer to provide a stream abstraction, which can be simple TCP, TLS, etc.

Traffic is one-way: every message is a msgpack encoded WireMessage written on
a pooled outbound connection, and nothing is read back. Replies travel as
ordinary messages on the responder's own outbound connections.
*/
type NetworkTransport struct {
	logger *logrus.Entry

	connPool     map[string][]*netConn
	connPoolLock sync.Mutex
	maxPool      int

	consumeCh chan *Message

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	stream StreamLayer

	timeout time.Duration
}

type netConn struct {
	target string
	conn   net.Conn
	w      *bufio.Writer
	enc    *ucodec.Encoder
}

// Release closes the underlying connection
func (n *netConn) Release() error {
	return n.conn.Close()
}

// NewNetworkTransport creates a new network transport with the given dialer
// and listener. The maxPool controls how many connections we will pool (per
// target). The timeout is used to apply I/O deadlines.
func NewNetworkTransport(
	stream StreamLayer,
	maxPool int,
	timeout time.Duration,
	logger *logrus.Entry,
) *NetworkTransport {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	trans := &NetworkTransport{
		connPool:   make(map[string][]*netConn),
		consumeCh:  make(chan *Message, 64),
		logger:     logger,
		maxPool:    maxPool,
		shutdownCh: make(chan struct{}),
		stream:     stream,
		timeout:    timeout,
	}

	return trans
}

// Close is used to stop the network transport.
func (n *NetworkTransport) Close() error {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if !n.shutdown {
		close(n.shutdownCh)
		n.stream.Close()
		n.shutdown = true

		n.connPoolLock.Lock()
		for _, conns := range n.connPool {
			for _, c := range conns {
				c.Release()
			}
		}
		n.connPool = make(map[string][]*netConn)
		n.connPoolLock.Unlock()
	}
	return nil
}

// Consumer implements the Transport interface.
func (n *NetworkTransport) Consumer() <-chan *Message {
	return n.consumeCh
}

// LocalAddr implements the Transport interface.
func (n *NetworkTransport) LocalAddr() string {
	addr := n.stream.Addr()

	if addr != nil {
		return addr.String()
	}

	return ""
}

// AdvertiseAddr implements the Transport interface.
func (n *NetworkTransport) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the transport is shutdown.
func (n *NetworkTransport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// getPooledConn is used to grab a pooled connection.
func (n *NetworkTransport) getPooledConn(target string) *netConn {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	conns, ok := n.connPool[target]
	if !ok || len(conns) == 0 {
		return nil
	}

	var conn *netConn
	num := len(conns)
	conn, conns[num-1] = conns[num-1], nil
	n.connPool[target] = conns[:num-1]
	return conn
}

// getConn is used to get a connection from the pool.
func (n *NetworkTransport) getConn(target string) (*netConn, error) {
	if conn := n.getPooledConn(target); conn != nil {
		return conn, nil
	}

	conn, err := n.stream.Dial(target, n.timeout)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriterSize(conn, bufSize)
	return &netConn{
		target: target,
		conn:   conn,
		w:      w,
		enc:    ucodec.NewEncoder(w, msgpackHandle),
	}, nil
}

// returnConn returns a connection back to the pool.
func (n *NetworkTransport) returnConn(conn *netConn) {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	key := conn.target
	conns := n.connPool[key]

	if !n.IsShutdown() && len(conns) < n.maxPool {
		n.connPool[key] = append(conns, conn)
	} else {
		conn.Release()
	}
}

// Send implements the Transport interface.
func (n *NetworkTransport) Send(target string, msg *Message) error {
	if n.IsShutdown() {
		return ErrTransportShutdown
	}

	wire, err := msg.ToWire()
	if err != nil {
		return err
	}

	conn, err := n.getConn(target)
	if err != nil {
		return err
	}

	if n.timeout > 0 {
		conn.conn.SetWriteDeadline(time.Now().Add(n.timeout))
	}

	if err := conn.enc.Encode(wire); err != nil {
		conn.Release()
		return err
	}
	if err := conn.w.Flush(); err != nil {
		conn.Release()
		return err
	}

	n.returnConn(conn)
	return nil
}

// Listen opens the stream and handles incoming connections.
func (n *NetworkTransport) Listen() {
	for {
		conn, err := n.stream.Accept()
		if err != nil {
			if n.IsShutdown() {
				return
			}
			n.logger.WithField("error", err).Error("Failed to accept connection")
			continue
		}
		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		go n.handleConn(conn)
	}
}

// handleConn decodes messages from an inbound connection for its lifespan.
func (n *NetworkTransport) handleConn(conn net.Conn) {
	defer conn.Close()

	go func() {
		<-n.shutdownCh
		conn.Close()
	}()

	dec := ucodec.NewDecoder(bufio.NewReaderSize(conn, bufSize), msgpackHandle)

	for {
		var wire WireMessage
		if err := dec.Decode(&wire); err != nil {
			if n.IsShutdown() {
				return
			}
			if err != io.EOF {
				n.logger.WithField("error", err).Error("Failed to decode incoming message")
			}
			return
		}

		msg, err := wire.ReadWireInfo()
		if err != nil {
			n.logger.WithFields(logrus.Fields{
				"from":  wire.SourceID,
				"error": err,
			}).Warn("Discarding malformed message")
			continue
		}

		select {
		case n.consumeCh <- msg:
		case <-n.shutdownCh:
			return
		}
	}
}
