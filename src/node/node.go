package node

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/config"
	"github.com/mosaicnetworks/gossiplearn/src/model"
	"github.com/mosaicnetworks/gossiplearn/src/net"
	"github.com/mosaicnetworks/gossiplearn/src/peers"
	"github.com/mosaicnetworks/gossiplearn/src/store"
	"github.com/mosaicnetworks/gossiplearn/src/weighted"
	"github.com/sirupsen/logrus"
)

// Node defines a gossip learning node
type Node struct {
	state

	conf   *config.Config
	logger *logrus.Entry

	core     *Core
	coreLock sync.Mutex

	trans net.Transport
	netCh <-chan *net.Message

	store store.Store

	shutdownCh chan struct{}

	controlTimer *ControlTimer

	start       time.Time
	roundErrors int
}

// NewNode is a factory method that returns a Node instance. The node is
// reachable at the advertised address of trans, and trains on data.
func NewNode(conf *config.Config,
	peers *peers.PeerSet,
	data model.Dataset,
	store store.Store,
	trans net.Transport,
) (*Node, error) {

	id := trans.AdvertiseAddr()
	logger := conf.Logger().WithField("this_id", id)

	core, err := NewCore(id, conf, peers, data, trans, logger)
	if err != nil {
		return nil, err
	}

	node := Node{
		conf:         conf,
		logger:       logger,
		core:         core,
		trans:        trans,
		netCh:        trans.Consumer(),
		store:        store,
		shutdownCh:   make(chan struct{}),
		controlTimer: NewRandomControlTimer(),
	}

	return &node, nil
}

// Init intialises the node and starts listening. With Bootstrap set, the shared models are restored
// from the last checkpoint of the store, if there is one.
func (n *Node) Init() error {
	if n.conf.Bootstrap && n.store != nil {
		n.logger.Debug("Bootstrap")

		cp, err := n.store.GetCheckpoint()
		switch {
		case err == nil:
			if err := n.core.Bootstrap(cp); err != nil {
				return err
			}
		case common.IsStore(err, common.KeyNotFound):
			n.logger.Debug("No checkpoint to bootstrap from")
		default:
			return err
		}
	}

	n.goFunc(n.trans.Listen)

	n.start = time.Now()
	n.setState(Gossiping)

	return nil
}

// RunAsync calls Run as a separate thread. Shutdown waits for it to return.
func (n *Node) RunAsync(gossip bool) {
	n.logger.WithField("gossip", gossip).Debug("runasync")
	n.goFunc(func() { n.Run(gossip) })
}

// Run invokes the main loop of the node. Timer ticks and incoming messages are
// handled one at a time by this goroutine. When gossip is false the node only
// answers pushes.
func (n *Node) Run(gossip bool) {
	go n.controlTimer.Run(n.conf.HeartbeatTimeout)

	for {
		select {
		case msg := <-n.netCh:
			n.processMessage(msg)
		case <-n.controlTimer.tickCh:
			if gossip && n.getState() == Gossiping {
				n.round()
			}
			n.controlTimer.Reset(n.conf.HeartbeatTimeout)
		case <-n.shutdownCh:
			return
		}
	}
}

func (n *Node) round() {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	if n.getState() == Shutdown {
		return
	}

	if err := n.core.Round(); err != nil {
		n.roundErrors++
		n.handleError("Round", err)
		return
	}

	if n.store != nil && n.conf.CheckpointInterval > 0 &&
		n.core.GetRound()%n.conf.CheckpointInterval == 0 {
		if err := n.store.SetCheckpoint(n.core.Checkpoint()); err != nil {
			n.logger.WithError(err).Error("Saving checkpoint")
		}
	}

	n.logStats()
}

func (n *Node) processMessage(msg *net.Message) {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	if err := n.core.ProcessMessage(msg); err != nil {
		n.handleError("ProcessMessage", err)
	}
}

// handleError drops the current exchange. A connection whose counters cannot
// be realigned is unrecoverable and brings the node down.
func (n *Node) handleError(op string, err error) {
	if errors.Is(err, ErrRollbackInvariant) {
		n.logger.WithError(err).Error(op)
		panic(err)
	}
	if errors.Is(err, weighted.ErrInvalidAge) {
		n.logger.WithError(err).Error(op)
		return
	}
	n.logger.WithError(err).Warn(op)
}

// Suspend stops initiating exchanges. The node keeps answering pushes.
func (n *Node) Suspend() {
	if n.getState() == Gossiping {
		n.logger.Debug("Suspend")
		n.setState(Suspended)
	}
}

// Resume restarts gossip on a suspended node.
func (n *Node) Resume() {
	if n.getState() == Suspended {
		n.logger.Debug("Resume")
		n.setState(Gossiping)
	}
}

// Shutdown shuts down the node
func (n *Node) Shutdown() {
	if n.getState() != Shutdown {
		n.logger.Debug("Shutdown")

		//Exit any non-shutdown state immediately
		n.setState(Shutdown)

		//Stop the run loop
		close(n.shutdownCh)

		n.controlTimer.Shutdown()

		//transport and store should only be closed once the listener is done
		n.trans.Close()

		n.waitRoutines()

		if n.store != nil {
			n.coreLock.Lock()
			if cp := n.core.Checkpoint(); cp != nil {
				if err := n.store.SetCheckpoint(cp); err != nil {
					n.logger.WithError(err).Error("Saving checkpoint")
				}
			}
			n.store.Close()
			n.coreLock.Unlock()
		}
	}
}

// GetStats returns stats
func (n *Node) GetStats() map[string]string {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	timeElapsed := time.Since(n.start)

	round := n.core.GetRound()
	roundsPerSecond := float64(round) / timeElapsed.Seconds()

	totals := n.core.Totals()

	localError := common.Mean(n.core.Evaluate(n.core.data))

	s := map[string]string{
		"rounds":            strconv.Itoa(round),
		"rounds_per_second": strconv.FormatFloat(roundsPerSecond, 'f', 2, 64),
		"round_errors":      strconv.Itoa(n.roundErrors),
		"pushes":            strconv.Itoa(totals.Pushes),
		"replies":           strconv.Itoa(totals.Replies),
		"updates":           strconv.Itoa(totals.Updates),
		"stale":             strconv.Itoa(totals.Stale),
		"duplicates":        strconv.Itoa(totals.Duplicates),
		"rollbacks":         strconv.Itoa(totals.Rollbacks),
		"unknown_peers":     strconv.Itoa(n.core.unknownPeers),
		"outgoing":          strconv.Itoa(len(n.core.outgoing)),
		"incoming":          strconv.Itoa(len(n.core.incoming)),
		"num_peers":         strconv.Itoa(n.core.peerSelector.Peers().Len()),
		"ages":              fmt.Sprint(n.core.Models().Ages()),
		"local_error":       strconv.FormatFloat(localError, 'f', 4, 64),
		"id":                n.core.ID(),
		"state":             n.getState().String(),
		"moniker":           n.conf.Moniker,
	}
	return s
}

// logStats is called with the core lock held.
func (n *Node) logStats() {
	if n.logger.Logger.Level < logrus.DebugLevel {
		return
	}

	totals := n.core.Totals()

	n.logger.WithFields(logrus.Fields{
		"round":      n.core.GetRound(),
		"pushes":     totals.Pushes,
		"replies":    totals.Replies,
		"updates":    totals.Updates,
		"stale":      totals.Stale,
		"duplicates": totals.Duplicates,
		"rollbacks":  totals.Rollbacks,
		"outgoing":   len(n.core.outgoing),
		"incoming":   len(n.core.incoming),
		"ages":       n.core.shared.Ages(),
		"state":      n.getState().String(),
	}).Debug("Stats")
}

// GetModels returns a copy of the node's shared models.
func (n *Node) GetModels() model.Holder {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()
	return n.core.Models()
}

// GetConnections describes the node's connections.
func (n *Node) GetConnections() []ConnectionInfo {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()
	return n.core.Connections()
}

// Evaluate returns the 0-1 error of every shared model over data.
func (n *Node) Evaluate(data model.Dataset) []float64 {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()
	return n.core.Evaluate(data)
}

// ID returns the address of the node.
func (n *Node) ID() string {
	return n.core.ID()
}

// GetPeers returns the peers
func (n *Node) GetPeers() []*peers.Peer {
	return n.core.peers.Peers
}

// GetState returns the state of the node.
func (n *Node) GetState() State {
	return n.getState()
}
