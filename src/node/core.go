package node

import (
	"errors"
	"fmt"
	"time"

	"github.com/mosaicnetworks/gossiplearn/src/codec"
	"github.com/mosaicnetworks/gossiplearn/src/config"
	"github.com/mosaicnetworks/gossiplearn/src/model"
	"github.com/mosaicnetworks/gossiplearn/src/net"
	"github.com/mosaicnetworks/gossiplearn/src/peers"
	"github.com/mosaicnetworks/gossiplearn/src/store"
	"github.com/mosaicnetworks/gossiplearn/src/telemetry"
	"github.com/mosaicnetworks/gossiplearn/src/weighted"
	"github.com/sirupsen/logrus"
)

// PushPullProtocol identifies the messages of the push-pull averaging
// protocol. Messages carrying another protocol ID are ignored.
const PushPullProtocol = 1

// ConnectionInfo describes one connection of a Core.
type ConnectionInfo struct {
	Peer               string
	Outgoing           bool
	SequenceID         int
	TransactionCounter int
	Stats              ConnectionStats
}

// Core is the core Node object. It owns the shared models of the node and the
// connections that average them with other nodes. Core is not safe for
// concurrent use; the Node serializes access to it.
type Core struct {
	// id is the address under which other nodes reach this one.
	id string

	eta     float64
	epochs  int
	batches int

	learner   model.Learner
	data      model.Dataset
	prototype codec.Codec

	// models are the node's own models. They seed the shared holder the
	// first time it is needed.
	models model.Holder

	// shared is the holder every connection reads and updates in place. It
	// must never be reassigned once connections exist.
	shared model.Holder

	// connections keyed by remote address
	outgoing map[string]*Connection
	incoming map[string]*Connection

	// peers is the list of peers that the node will try to gossip with.
	peers *peers.PeerSet

	// peerSelector is the object that decides which peer to talk to next.
	peerSelector PeerSelector

	trans Sender

	round        int
	unknownPeers int
	foreign      int

	logger *logrus.Entry
}

// NewCore is a factory method that returns a new Core object. The models,
// learner and codec are instantiated from conf. data is the local training
// set.
func NewCore(
	id string,
	conf *config.Config,
	peers *peers.PeerSet,
	data model.Dataset,
	trans Sender,
	logger *logrus.Entry,
) (*Core, error) {

	learner, err := model.NewLearner(conf.Learner, conf.LearnerParams)
	if err != nil {
		return nil, err
	}

	prototype, err := codec.New(conf.Codec, conf.CodecParams)
	if err != nil {
		return nil, err
	}

	models, err := model.NewHolder(conf.Model, conf.Models, conf.Features)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	core := &Core{
		id:           id,
		eta:          conf.Eta,
		epochs:       conf.Epochs,
		batches:      conf.Batches,
		learner:      learner,
		data:         data,
		prototype:    prototype,
		models:       models,
		peers:        peers,
		peerSelector: NewPeerSelector(conf.Selector, peers, id),
		trans:        trans,
		logger:       logger,
	}

	return core, nil
}

// ID returns the address of the node.
func (c *Core) ID() string {
	return c.id
}

// init creates the connection maps and the shared holder, and trains the
// shared models once so that they can be averaged. It does nothing after the
// first call.
func (c *Core) init() error {
	if c.shared != nil {
		return nil
	}

	c.outgoing = make(map[string]*Connection)
	c.incoming = make(map[string]*Connection)
	c.shared = c.models.Clone()

	c.logger.WithFields(logrus.Fields{
		"models":    len(c.shared),
		"instances": len(c.data),
	}).Debug("Initialized shared models")

	return c.train()
}

// Bootstrap replaces the shared models with the ones of a checkpoint. It must
// be called before any exchange.
func (c *Core) Bootstrap(cp *store.Checkpoint) error {
	if c.shared != nil {
		return fmt.Errorf("cannot bootstrap a core that already gossips")
	}
	if len(cp.Models) != len(c.models) {
		return fmt.Errorf("checkpoint holds %d models, expected %d", len(cp.Models), len(c.models))
	}

	c.outgoing = make(map[string]*Connection)
	c.incoming = make(map[string]*Connection)
	c.shared = cp.Models.Clone()
	c.round = cp.Round

	c.logger.WithFields(logrus.Fields{
		"round": cp.Round,
		"ages":  c.shared.Ages(),
	}).Debug("Bootstrapped from checkpoint")

	return nil
}

// train runs local training on every shared model.
func (c *Core) train() error {
	if c.epochs == 0 || len(c.data) == 0 {
		return nil
	}
	for i, m := range c.shared {
		if err := c.learner.Update(m, c.data, c.epochs, c.batches); err != nil {
			return fmt.Errorf("training model %d: %w", i, err)
		}
	}
	return nil
}

// Round trains the shared models on the local data and pushes them to the
// next neighbor given by the peer selector. A node without neighbors only
// trains.
func (c *Core) Round() error {
	if err := c.init(); err != nil {
		return err
	}

	c.round++
	telemetry.Rounds.WithLabelValues(c.id).Inc()

	if err := c.train(); err != nil {
		return err
	}
	telemetry.SetModelAges(c.id, c.shared.Ages())

	peer := c.peerSelector.Next()
	if peer == nil {
		c.logger.Debug("No peers to gossip with")
		return nil
	}

	return c.connection(peer.NetAddr, true).SendPush()
}

// ProcessMessage hands a message to the connection it belongs to. Pushes
// create the incoming connection of their source on first contact; replies
// from a peer this node never pushed to are discarded.
func (c *Core) ProcessMessage(msg *net.Message) error {
	if err := c.init(); err != nil {
		return err
	}

	if msg.ProtocolID != PushPullProtocol {
		c.foreign++
		c.discard(msg, telemetry.WrongProtocol)
		return nil
	}

	var conn *Connection
	if msg.IsReply {
		var ok bool
		conn, ok = c.outgoing[msg.SourceID]
		if !ok {
			c.unknownPeers++
			c.discard(msg, telemetry.UnknownPeer)
			return nil
		}
	} else {
		conn = c.connection(msg.SourceID, false)
	}

	err := conn.ProcessMsg(msg)
	if err != nil && errors.Is(err, weighted.ErrInvalidAge) {
		c.discard(msg, telemetry.InvalidAge)
	} else if err != nil && !errors.Is(err, ErrRollbackInvariant) {
		c.discard(msg, telemetry.Malformed)
	}
	return err
}

// connection gets or creates the connection with addr in the given role.
func (c *Core) connection(addr string, outgoing bool) *Connection {
	conns := c.incoming
	direction := "incoming"
	if outgoing {
		conns = c.outgoing
		direction = "outgoing"
	}

	conn, ok := conns[addr]
	if !ok {
		conn = NewConnection(
			c.id,
			addr,
			PushPullProtocol,
			outgoing,
			c.eta,
			c.prototype,
			c.shared,
			c.trans,
			c.logger,
		)
		conns[addr] = conn
		telemetry.Connections.WithLabelValues(c.id, direction).Set(float64(len(conns)))

		c.logger.WithFields(logrus.Fields{
			"peer":      addr,
			"direction": direction,
		}).Debug("New connection")
	}

	return conn
}

func (c *Core) discard(msg *net.Message, reason string) {
	telemetry.Discards.WithLabelValues(c.id, reason).Inc()
	c.logger.WithFields(logrus.Fields{
		"reason":   reason,
		"from":     msg.SourceID,
		"protocol": msg.ProtocolID,
		"reply":    msg.IsReply,
	}).Debug("Discarding message")
}

// Checkpoint returns a copy of the shared models, tagged with the current
// round. It returns nil before the shared models exist.
func (c *Core) Checkpoint() *store.Checkpoint {
	if c.shared == nil {
		return nil
	}
	return &store.Checkpoint{
		Round:     c.round,
		Timestamp: time.Now().Unix(),
		Models:    c.shared.Clone(),
	}
}

// Models returns a copy of the shared models, or of the initial models if the
// node has not gossiped yet.
func (c *Core) Models() model.Holder {
	if c.shared == nil {
		return c.models.Clone()
	}
	return c.shared.Clone()
}

// Evaluate returns the 0-1 error of every shared model over data.
func (c *Core) Evaluate(data model.Dataset) []float64 {
	models := c.shared
	if models == nil {
		models = c.models
	}
	res := make([]float64, len(models))
	for i, m := range models {
		res[i] = c.learner.Error(m, data)
	}
	return res
}

// GetRound returns the number of rounds initiated.
func (c *Core) GetRound() int {
	return c.round
}

// Connections describes the open connections, outgoing first.
func (c *Core) Connections() []ConnectionInfo {
	res := []ConnectionInfo{}
	for _, conns := range []map[string]*Connection{c.outgoing, c.incoming} {
		for addr, conn := range conns {
			res = append(res, ConnectionInfo{
				Peer:               addr,
				Outgoing:           conn.Outgoing(),
				SequenceID:         conn.SequenceID(),
				TransactionCounter: conn.TransactionCounter(),
				Stats:              conn.Stats(),
			})
		}
	}
	return res
}

// Totals sums the counters of all connections.
func (c *Core) Totals() ConnectionStats {
	var res ConnectionStats
	for _, conns := range []map[string]*Connection{c.outgoing, c.incoming} {
		for _, conn := range conns {
			s := conn.Stats()
			res.Pushes += s.Pushes
			res.Replies += s.Replies
			res.Updates += s.Updates
			res.Stale += s.Stale
			res.Duplicates += s.Duplicates
			res.Rollbacks += s.Rollbacks
		}
	}
	return res
}
