package gossiplearn

import (
	"fmt"
	"os"

	"github.com/mosaicnetworks/gossiplearn/src/config"
	"github.com/mosaicnetworks/gossiplearn/src/model"
	"github.com/mosaicnetworks/gossiplearn/src/net"
	"github.com/mosaicnetworks/gossiplearn/src/node"
	"github.com/mosaicnetworks/gossiplearn/src/peers"
	"github.com/mosaicnetworks/gossiplearn/src/service"
	"github.com/mosaicnetworks/gossiplearn/src/store"
	"github.com/mosaicnetworks/gossiplearn/src/telemetry"
	"github.com/mosaicnetworks/gossiplearn/src/version"
	"github.com/sirupsen/logrus"
)

// GossipLearn is the engine that wires the components of a gossip learning
// node together.
type GossipLearn struct {
	Config    *config.Config
	Node      *node.Node
	Transport net.Transport
	Store     store.Store
	Peers     *peers.PeerSet
	Dataset   model.Dataset
	Service   *service.Service
	logger    *logrus.Entry
}

// NewGossipLearn is a factory method to produce a GossipLearn instance.
func NewGossipLearn(c *config.Config) *GossipLearn {
	engine := &GossipLearn{
		Config: c,
		logger: c.Logger(),
	}

	return engine
}

// Init initialises the engine from its configuration.
func (g *GossipLearn) Init() error {
	g.logger.Debug("validateConfig")
	if err := g.Config.Validate(); err != nil {
		g.logger.Error("validateConfig")
		return err
	}

	g.logger.Debug("initPeers")
	if err := g.initPeers(); err != nil {
		g.logger.Error("initPeers", err)
		return err
	}

	g.logger.Debug("initDataset")
	if err := g.initDataset(); err != nil {
		g.logger.Error("initDataset", err)
		return err
	}

	g.logger.Debug("initStore")
	if err := g.initStore(); err != nil {
		g.logger.Error("initStore", err)
		return err
	}

	g.logger.Debug("initTransport")
	if err := g.initTransport(); err != nil {
		g.logger.Error("initTransport", err)
		return err
	}

	g.logger.Debug("initNode")
	if err := g.initNode(); err != nil {
		g.logger.Error("initNode", err)
		return err
	}

	g.logger.Debug("initService")
	if err := g.initService(); err != nil {
		g.logger.Error("initService", err)
		return err
	}

	telemetry.SetBuildInfo(version.Version)

	return nil
}

// Run starts the HTTP service, if any, and the node. It blocks until the node
// is shut down.
func (g *GossipLearn) Run() {
	if g.Service != nil && g.Config.ServiceAddr != "" {
		go g.Service.Serve()
	}

	g.Node.Run(true)
}

// Shutdown stops the node, closing its transport and store.
func (g *GossipLearn) Shutdown() {
	if g.Node != nil {
		g.Node.Shutdown()
	}
}

func (g *GossipLearn) initPeers() error {
	if g.Peers != nil {
		return nil
	}

	jsonPeerSet := peers.NewJSONPeerSet(g.Config.DataDir)

	ps, err := jsonPeerSet.PeerSet()
	if err != nil {
		return err
	}

	if ps == nil {
		g.logger.WithField("path", jsonPeerSet.Path()).Warn("Empty peer set")
		ps = peers.NewPeerSet(nil)
	}

	g.Peers = ps

	return nil
}

func (g *GossipLearn) initDataset() error {
	if g.Config.Dataset != nil {
		g.Dataset = g.Config.Dataset
		return nil
	}

	data, err := model.LoadDataset(g.Config.DataFile)
	if err != nil {
		return fmt.Errorf("loading training data: %w", err)
	}

	if dim := data.Dim(); g.Config.Model == model.LinearKind && dim > g.Config.Features {
		return fmt.Errorf("training data has %d features, models have %d", dim, g.Config.Features)
	}

	g.logger.WithFields(logrus.Fields{
		"path":      g.Config.DataFile,
		"instances": len(data),
	}).Debug("Loaded training data")

	g.Dataset = data

	return nil
}

func (g *GossipLearn) initStore() error {
	if !g.Config.Store && !g.Config.Bootstrap {
		g.logger.Debug("Creating InmemStore")
		g.Store = store.NewInmemStore()
		return nil
	}

	dbPath := g.Config.DatabaseDir

	if _, err := os.Stat(dbPath); err == nil {
		g.logger.WithField("path", dbPath).Debug("Opening existing database")
	} else if !g.Config.Bootstrap {
		g.logger.WithField("path", dbPath).Debug("Creating new database")
	} else {
		return fmt.Errorf("cannot bootstrap without a database in %s", dbPath)
	}

	dbStore, err := store.NewBadgerStore(dbPath, g.logger)
	if err != nil {
		return err
	}

	g.Store = dbStore

	return nil
}

func (g *GossipLearn) initTransport() error {
	transport, err := net.NewTCPTransport(
		g.Config.BindAddr,
		g.Config.AdvertiseAddr,
		g.Config.MaxPool,
		g.Config.TCPTimeout,
		g.logger,
	)
	if err != nil {
		return err
	}

	g.Transport = transport

	return nil
}

func (g *GossipLearn) initNode() error {
	self := g.Transport.AdvertiseAddr()

	if _, ok := g.Peers.ByAddr[self]; !ok {
		g.logger.WithField("addr", self).Warn("Node does not belong to the peer set")
	}

	g.logger.WithFields(logrus.Fields{
		"peers": g.Peers.Len(),
		"addr":  self,
	}).Debug("PARTICIPANTS")

	n, err := node.NewNode(
		g.Config,
		g.Peers,
		g.Dataset,
		g.Store,
		g.Transport,
	)
	if err != nil {
		return err
	}

	if err := n.Init(); err != nil {
		return fmt.Errorf("failed to initialize node: %s", err)
	}

	g.Node = n

	return nil
}

func (g *GossipLearn) initService() error {
	if !g.Config.NoService {
		g.Service = service.NewService(g.Config.ServiceAddr, g.Node, g.logger)
	}
	return nil
}
