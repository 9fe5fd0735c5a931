package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/mosaicnetworks/gossiplearn/src/model"
	"github.com/mosaicnetworks/gossiplearn/src/node"
	"github.com/mosaicnetworks/gossiplearn/src/peers"
	"github.com/mosaicnetworks/gossiplearn/src/telemetry"
	"github.com/sirupsen/logrus"
)

// Service exposes the state of a node over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	node        *node.Node
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// ModelInfo is the JSON view of a shared model.
type ModelInfo struct {
	Kind  string      `json:"kind"`
	Age   float64     `json:"age"`
	Model model.Model `json:"model"`
}

// NewService ...
func NewService(bindAddress string, n *node.Node, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		node:        n,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

// registerHandlers registers the API handlers with the service's own mux, so
// that several nodes of the same process can each serve their API.
func (s *Service) registerHandlers() {
	s.logger.Debug("Registering gossip learning API handlers")
	s.mux.Handle("/stats", s.makeHandler("stats", s.GetStats))
	s.mux.Handle("/model", s.makeHandler("model", s.GetModel))
	s.mux.Handle("/connections", s.makeHandler("connections", s.GetConnections))
	s.mux.Handle("/peers", s.makeHandler("peers", s.GetPeers))
	s.mux.Handle("/suspend", s.makeHandler("suspend", s.Suspend))
	s.mux.Handle("/resume", s.makeHandler("resume", s.Resume))
	s.mux.Handle("/metrics", telemetry.MetricsHandler())
}

func (s *Service) makeHandler(op string, fn func(http.ResponseWriter, *http.Request)) http.Handler {
	return telemetry.Instrument(op, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}))
}

// Handler returns the handler serving the API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving gossip learning API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.node.GetStats()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetModel returns the shared models of the node.
func (s *Service) GetModel(w http.ResponseWriter, r *http.Request) {
	models := s.node.GetModels()

	res := make([]ModelInfo, len(models))
	for i, m := range models {
		res[i] = ModelInfo{
			Kind:  m.Kind(),
			Age:   m.Age(),
			Model: m,
		}
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(res)
}

// GetConnections returns the counters of the node's connections.
func (s *Service) GetConnections(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(s.node.GetConnections())
}

// GetPeers ...
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	returnPeerSet(w, r, s.node.GetPeers())
}

// Suspend stops the node from initiating exchanges.
func (s *Service) Suspend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.node.Suspend()
	s.returnState(w)
}

// Resume restarts gossip on a suspended node.
func (s *Service) Resume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	s.node.Resume()
	s.returnState(w)
}

func (s *Service) returnState(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(map[string]string{"state": s.node.GetState().String()})
}

func returnPeerSet(w http.ResponseWriter, r *http.Request, peers []*peers.Peer) {
	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)

	encoder.Encode(peers)
}
