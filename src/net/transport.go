package net

import "errors"

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	// ErrUnknownPeer is returned when sending to an address the transport
	// cannot route to.
	ErrUnknownPeer = errors.New("unknown peer")
)

// Transport provides an interface for network transports to allow a node to
// exchange push-pull messages with other nodes. Delivery is best-effort: a
// message may be delayed, duplicated by the sender, or lost.
type Transport interface {

	// Starts the transport listening
	Listen()

	// Consumer returns a channel that delivers incoming messages.
	Consumer() <-chan *Message

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other peers
	// can reach us
	AdvertiseAddr() string

	// Send transmits msg to target and returns without waiting for an answer.
	// An error means the message was certainly not delivered.
	Send(target string, msg *Message) error

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}
