package node

import (
	"fmt"

	"github.com/mosaicnetworks/gossiplearn/src/codec"
	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/model"
	"github.com/mosaicnetworks/gossiplearn/src/net"
	"github.com/mosaicnetworks/gossiplearn/src/telemetry"
	"github.com/mosaicnetworks/gossiplearn/src/weighted"
	"github.com/sirupsen/logrus"
)

var (
	// ErrRollbackInvariant is returned when an incoming connection cannot
	// realign its transaction counter with the initiator's. The connection
	// state is corrupt and the node must stop.
	ErrRollbackInvariant = common.NewProtocolErr("Connection", common.RollbackInvariant, "")

	// ErrNoPendingSend is returned when a delta is requested without a sent
	// payload that has not been consumed yet.
	ErrNoPendingSend = common.NewProtocolErr("Connection", common.NoPendingSend, "")
)

// Sender is the part of net.Transport used by connections.
type Sender interface {
	Send(target string, msg *net.Message) error
}

// ConnectionStats counts the events of a connection.
type ConnectionStats struct {
	Pushes     int
	Replies    int
	Updates    int
	Stale      int
	Duplicates int
	Rollbacks  int
}

// Connection is the push-pull state shared with one remote peer, in one role.
// An outgoing connection initiates exchanges with SendPush and applies the
// replies; an incoming connection answers pushes. A node holds at most one
// connection per peer and role.
//
// Connections are not safe for concurrent use. All the connections of a node
// operate on the same shared holder, and the node serializes calls.
type Connection struct {
	localID    string
	remoteID   string
	protocolID int
	outgoing   bool
	eta        float64

	shared model.Holder
	trans  Sender

	sequenceID         int
	transactionCounter int
	localCodec         *codec.HolderCodec
	remoteCodec        *codec.HolderCodec

	// lastSent is the encoded payload of the last message sent. pending is
	// true until a delta has been computed from it.
	lastSent model.Holder
	pending  bool

	// incoming only: the state needed to undo the last exchange if its reply
	// was lost.
	localSnapshot  *codec.HolderCodec
	remoteSnapshot *codec.HolderCodec
	lastDelta      *weighted.Holder

	stats ConnectionStats

	logger *logrus.Entry
}

// NewConnection creates a connection between localID and remoteID operating on
// shared. The codec bank is instantiated from prototype, one slot per scalar
// parameter.
func NewConnection(
	localID string,
	remoteID string,
	protocolID int,
	outgoing bool,
	eta float64,
	prototype codec.Codec,
	shared model.Holder,
	trans Sender,
	logger *logrus.Entry,
) *Connection {
	role := "incoming"
	if outgoing {
		role = "outgoing"
	}

	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	return &Connection{
		localID:     localID,
		remoteID:    remoteID,
		protocolID:  protocolID,
		outgoing:    outgoing,
		eta:         eta,
		shared:      shared,
		trans:       trans,
		localCodec:  codec.NewHolderCodec(prototype, len(shared)),
		remoteCodec: codec.NewHolderCodec(prototype, len(shared)),
		logger: logger.WithFields(logrus.Fields{
			"peer": remoteID,
			"role": role,
		}),
	}
}

// SequenceID returns the sequence number of the last push sent (outgoing) or
// answered (incoming).
func (c *Connection) SequenceID() int {
	return c.sequenceID
}

// TransactionCounter returns the number of exchanges applied on this side.
func (c *Connection) TransactionCounter() int {
	return c.transactionCounter
}

// Outgoing reports the role of the connection.
func (c *Connection) Outgoing() bool {
	return c.outgoing
}

// Stats returns a copy of the connection's counters.
func (c *Connection) Stats() ConnectionStats {
	return c.stats
}

// SendPush starts a new exchange. Only outgoing connections push. A push that
// replaces one still waiting for its reply abandons the older exchange.
func (c *Connection) SendPush() error {
	if !c.outgoing {
		return fmt.Errorf("incoming connection with %s cannot push", c.remoteID)
	}
	c.sequenceID++
	msg, err := c.prepare(false)
	if err != nil {
		return err
	}
	c.send(msg)
	return nil
}

// ProcessMsg handles a message from the remote peer. Stale, duplicate and
// out-of-order messages are discarded and do not produce an error. An error
// wrapping ErrRollbackInvariant is fatal; any other error drops the exchange.
func (c *Connection) ProcessMsg(msg *net.Message) error {
	if msg.IsReply {
		return c.processReply(msg)
	}
	return c.processPush(msg)
}

func (c *Connection) processReply(msg *net.Message) error {
	if !c.outgoing {
		return fmt.Errorf("incoming connection with %s received a reply", c.remoteID)
	}

	if msg.SequenceID != c.sequenceID {
		c.discard(msg, telemetry.StaleReply)
		c.stats.Stale++
		return nil
	}
	if !c.pending {
		c.discard(msg, telemetry.DuplicateReply)
		c.stats.Duplicates++
		return nil
	}

	_, err := c.update(msg)
	return err
}

// processPush answers a push and applies it. The reply is only sent once the
// push has been applied: a push that cannot be applied looks like a lost
// message to the initiator, and both counters stay where they were.
func (c *Connection) processPush(msg *net.Message) error {
	if c.outgoing {
		return fmt.Errorf("outgoing connection with %s received a push", c.remoteID)
	}

	if msg.SequenceID <= c.sequenceID {
		c.discard(msg, telemetry.StalePush)
		c.stats.Stale++
		return nil
	}
	if msg.TransactionCounter < 0 {
		return fmt.Errorf("negative transaction counter %d", msg.TransactionCounter)
	}

	c.sequenceID = msg.SequenceID

	if msg.TransactionCounter != c.transactionCounter {
		if c.localSnapshot == nil {
			c.adopt(msg.TransactionCounter)
		} else if err := c.rollback(msg.TransactionCounter); err != nil {
			return err
		}
	}

	reply, err := c.prepare(true)
	if err != nil {
		return err
	}

	localSnapshot := c.localCodec.Clone()
	remoteSnapshot := c.remoteCodec.Clone()

	delta, err := c.update(msg)
	if err != nil {
		c.pending = false
		c.lastDelta = nil
		return err
	}

	c.localSnapshot = localSnapshot
	c.remoteSnapshot = remoteSnapshot
	c.lastDelta = delta

	c.send(reply)
	return nil
}

// adopt aligns the counter of a connection that has not completed any
// exchange with the initiator's. This happens when this node restarted while
// the initiator kept its connection.
func (c *Connection) adopt(remoteCounter int) {
	c.logger.WithFields(logrus.Fields{
		"transaction_counter": c.transactionCounter,
		"remote_counter":      remoteCounter,
	}).Info("Adopting transaction counter of new peer")

	c.transactionCounter = remoteCounter
}

// rollback undoes the last exchange, whose reply never reached the initiator.
func (c *Connection) rollback(remoteCounter int) error {
	if remoteCounter != c.transactionCounter-1 {
		return fmt.Errorf("%w: local counter %d, remote counter %d",
			ErrRollbackInvariant, c.transactionCounter, remoteCounter)
	}

	if c.lastDelta != nil {
		if err := c.lastDelta.AddTo(c.shared, 1); err != nil {
			return fmt.Errorf("undoing last delta: %w", err)
		}
	}

	c.transactionCounter--
	c.localCodec = c.localSnapshot.Clone()
	c.remoteCodec = c.remoteSnapshot.Clone()
	c.lastDelta = nil

	c.stats.Rollbacks++
	telemetry.Rollbacks.WithLabelValues(c.localID).Inc()

	c.logger.WithFields(logrus.Fields{
		"transaction_counter": c.transactionCounter,
	}).Debug("Rolled back lost exchange")

	return nil
}

// prepare encodes a copy of the shared models into a message for the remote
// peer. The encoded payload becomes the pending payload.
func (c *Connection) prepare(reply bool) (*net.Message, error) {
	payload, err := c.localCodec.Encode(c.shared.Clone())
	if err != nil {
		return nil, fmt.Errorf("encoding shared models: %w", err)
	}

	c.lastSent = payload
	c.pending = true

	return &net.Message{
		SourceID:           c.localID,
		TargetID:           c.remoteID,
		ProtocolID:         c.protocolID,
		Payload:            payload,
		SequenceID:         c.sequenceID,
		TransactionCounter: c.transactionCounter,
		IsReply:            reply,
	}, nil
}

// send hands msg to the transport. Transport failures are logged only: a
// message that could not be sent is handled like a lost one.
func (c *Connection) send(msg *net.Message) {
	kind := "push"
	if msg.IsReply {
		kind = "reply"
		c.stats.Replies++
	} else {
		c.stats.Pushes++
	}
	telemetry.Messages.WithLabelValues(c.localID, kind).Inc()

	if err := c.trans.Send(c.remoteID, msg); err != nil {
		telemetry.SendErrors.WithLabelValues(c.localID).Inc()
		c.logger.WithFields(logrus.Fields{
			"kind":  kind,
			"error": err,
		}).Debug("Send failed")
	}
}

// update moves the shared models toward the remote ones by eta/2 of their
// difference, both sides decoded with the codec state the remote peer uses
// for the same payloads, and returns the delta that was subtracted. The codec
// bank, the counter and the shared models change only if the whole update
// succeeds.
func (c *Connection) update(msg *net.Message) (*weighted.Holder, error) {
	if !c.pending {
		return nil, ErrNoPendingSend
	}

	localCodec := c.localCodec.Clone()
	remoteCodec := c.remoteCodec.Clone()

	local, err := localCodec.Decode(c.lastSent)
	if err != nil {
		return nil, fmt.Errorf("decoding sent models: %w", err)
	}
	remote, err := remoteCodec.Decode(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("decoding received models: %w", err)
	}

	delta, err := weighted.New(local)
	if err != nil {
		return nil, err
	}
	w, err := weighted.New(remote)
	if err != nil {
		return nil, err
	}
	if err := delta.Add(w, -1); err != nil {
		return nil, err
	}
	if err := delta.Multiply(c.eta / 2); err != nil {
		return nil, err
	}
	if err := delta.AddTo(c.shared, -1); err != nil {
		return nil, err
	}

	c.localCodec = localCodec
	c.remoteCodec = remoteCodec
	c.pending = false
	c.transactionCounter++

	c.stats.Updates++
	telemetry.Updates.WithLabelValues(c.localID).Inc()

	return delta, nil
}

func (c *Connection) discard(msg *net.Message, reason string) {
	telemetry.Discards.WithLabelValues(c.localID, reason).Inc()
	c.logger.WithFields(logrus.Fields{
		"reason":      reason,
		"msg_seq":     msg.SequenceID,
		"msg_tx":      msg.TransactionCounter,
		"sequence_id": c.sequenceID,
	}).Debug("Discarding message")
}
