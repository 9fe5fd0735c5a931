// Package gossiplearn wires a gossip learning node together.
//
// The engine reads the peer set from peers.json in the data directory, loads
// the local training data, opens the checkpoint store, binds a TCP transport,
// and starts the node and its HTTP service:
//
//	conf := config.NewDefaultConfig()
//	conf.SetDataDir("/home/user/.gossiplearn")
//
//	engine := gossiplearn.NewGossipLearn(conf)
//	if err := engine.Init(); err != nil {
//		conf.Logger().Error("Cannot initialize engine:", err)
//		os.Exit(1)
//	}
//
//	engine.Run()
package gossiplearn
