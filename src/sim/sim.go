package sim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/config"
	"github.com/mosaicnetworks/gossiplearn/src/model"
	"github.com/mosaicnetworks/gossiplearn/src/net"
	"github.com/mosaicnetworks/gossiplearn/src/node"
	"github.com/mosaicnetworks/gossiplearn/src/peers"
	"github.com/sirupsen/logrus"
)

// Config describes a simulated network.
type Config struct {
	// Nodes is the size of the network.
	Nodes int `mapstructure:"nodes"`

	// Instances is the number of training instances of every node.
	Instances int `mapstructure:"instances"`

	// TestInstances is the size of the shared evaluation set.
	TestInstances int `mapstructure:"test-instances"`

	// DropRate is the probability that a message is lost.
	DropRate float64 `mapstructure:"drop-rate"`

	// MinLatency and MaxLatency bound the uniform delay of every message.
	MinLatency time.Duration `mapstructure:"min-latency"`
	MaxLatency time.Duration `mapstructure:"max-latency"`

	// Seed makes the generated data reproducible.
	Seed int64 `mapstructure:"seed"`
}

// NewDefaultConfig returns a small lossless network.
func NewDefaultConfig() *Config {
	return &Config{
		Nodes:         10,
		Instances:     10,
		TestInstances: 500,
		Seed:          1,
	}
}

// Cycle summarizes the state of the network after one heartbeat.
type Cycle struct {
	Index     int
	MeanError float64
	MinError  float64
	MaxError  float64
	Updates   int
	Rollbacks int
}

// String ...
func (c Cycle) String() string {
	return fmt.Sprintf("cycle %d: error mean %.4f min %.4f max %.4f, updates %d, rollbacks %d",
		c.Index, c.MeanError, c.MinError, c.MaxError, c.Updates, c.Rollbacks)
}

// Simulation runs a network of nodes in the current process, connected by
// in-memory transports. Every node gets its own share of a synthetic linearly
// separable dataset.
type Simulation struct {
	conf     *Config
	nodeConf *config.Config

	Nodes      []*node.Node
	Transports []*net.InmemTransport
	Test       model.Dataset

	logger *logrus.Entry
}

// NewSimulation creates and initializes the nodes of a simulation. Every node
// is configured with a copy of nodeConf.
func NewSimulation(conf *Config, nodeConf *config.Config) (*Simulation, error) {
	if conf.Nodes < 1 {
		return nil, fmt.Errorf("a simulation needs at least one node")
	}
	if err := nodeConf.Validate(); err != nil {
		return nil, err
	}

	rnd := rand.New(rand.NewSource(conf.Seed))
	w := Hyperplane(rnd, nodeConf.Features)

	s := &Simulation{
		conf:     conf,
		nodeConf: nodeConf,
		Test:     Synthetic(rnd, conf.TestInstances, w),
		logger:   nodeConf.Logger().WithField("sim", true),
	}

	var ps []*peers.Peer
	for i := 0; i < conf.Nodes; i++ {
		addr, trans := net.NewInmemTransport(fmt.Sprintf("node%d", i))
		trans.SetDropRate(conf.DropRate)
		trans.SetLatency(conf.MinLatency, conf.MaxLatency)
		s.Transports = append(s.Transports, trans)
		ps = append(ps, peers.NewPeer(addr, addr))
	}
	for _, a := range s.Transports {
		for _, b := range s.Transports {
			if a != b {
				a.Connect(b.LocalAddr(), b)
			}
		}
	}
	peerSet := peers.NewPeerSet(ps)

	for i, trans := range s.Transports {
		c := *nodeConf
		c.Moniker = ps[i].Moniker
		c.Store = false
		c.Bootstrap = false

		n, err := node.NewNode(&c, peerSet, Synthetic(rnd, conf.Instances, w), nil, trans)
		if err != nil {
			return nil, err
		}
		if err := n.Init(); err != nil {
			return nil, err
		}
		s.Nodes = append(s.Nodes, n)
	}

	s.logger.WithFields(logrus.Fields{
		"nodes":     conf.Nodes,
		"instances": conf.Instances,
		"drop_rate": conf.DropRate,
		"latency":   fmt.Sprintf("%v-%v", conf.MinLatency, conf.MaxLatency),
	}).Debug("Simulation initialized")

	return s, nil
}

// Run starts the nodes, waits cycles heartbeats and evaluates the network
// after each of them. report, if not nil, is called with every cycle.
func (s *Simulation) Run(cycles int, report func(Cycle)) []Cycle {
	for _, n := range s.Nodes {
		n.RunAsync(true)
	}

	res := make([]Cycle, 0, cycles)
	for i := 1; i <= cycles; i++ {
		time.Sleep(s.nodeConf.HeartbeatTimeout)

		c := s.Evaluate()
		c.Index = i
		res = append(res, c)

		if report != nil {
			report(c)
		}
	}
	return res
}

// Evaluate computes the error of the first model of every node over the test
// set.
func (s *Simulation) Evaluate() Cycle {
	errs := make([]float64, len(s.Nodes))
	c := Cycle{}
	for i, n := range s.Nodes {
		errs[i] = n.Evaluate(s.Test)[0]
		for _, conn := range n.GetConnections() {
			c.Updates += conn.Stats.Updates
			c.Rollbacks += conn.Stats.Rollbacks
		}
	}

	c.MeanError = common.Mean(errs)
	c.MinError, c.MaxError = errs[0], errs[0]
	for _, e := range errs[1:] {
		if e < c.MinError {
			c.MinError = e
		}
		if e > c.MaxError {
			c.MaxError = e
		}
	}
	return c
}

// Shutdown stops every node.
func (s *Simulation) Shutdown() {
	for _, n := range s.Nodes {
		n.Shutdown()
	}
}
