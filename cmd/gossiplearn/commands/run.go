package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/gossiplearn/src/gossiplearn"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewRunCmd returns the command that starts a gossip learning node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runGossipLearn,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runGossipLearn(cmd *cobra.Command, args []string) error {
	engine := gossiplearn.NewGossipLearn(&_config.GossipLearn)

	if err := engine.Init(); err != nil {
		_config.GossipLearn.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		_config.GossipLearn.Logger().Info("Shutting down")
		engine.Shutdown()
	}()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	addNodeFlags(cmd)

	// Network
	cmd.Flags().StringP("listen", "l", _config.GossipLearn.BindAddr, "Listen IP:Port for gossip")
	cmd.Flags().StringP("advertise", "a", _config.GossipLearn.AdvertiseAddr, "Advertise IP:Port for gossip")
	cmd.Flags().DurationP("timeout", "t", _config.GossipLearn.TCPTimeout, "TCP Timeout")
	cmd.Flags().Int("max-pool", _config.GossipLearn.MaxPool, "Connection pool size max")
	cmd.Flags().String("moniker", _config.GossipLearn.Moniker, "Optional name")

	// Service
	cmd.Flags().Bool("no-service", _config.GossipLearn.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.GossipLearn.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.GossipLearn.Store, "Checkpoint the shared models in a persistent store")
	cmd.Flags().String("db", _config.GossipLearn.DatabaseDir, "Dabatabase directory")
	cmd.Flags().Bool("bootstrap", _config.GossipLearn.Bootstrap, "Restore the shared models from the last checkpoint")
	cmd.Flags().Int("checkpoint-interval", _config.GossipLearn.CheckpointInterval, "Rounds between checkpoints")

	// Data
	cmd.Flags().String("data", _config.GossipLearn.DataFile, "Local training set in SVMLight format")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	_config.GossipLearn.Logger().WithFields(logrus.Fields{
		"datadir":             _config.GossipLearn.DataDir,
		"listen":              _config.GossipLearn.BindAddr,
		"advertise":           _config.GossipLearn.AdvertiseAddr,
		"service-listen":      _config.GossipLearn.ServiceAddr,
		"no-service":          _config.GossipLearn.NoService,
		"heartbeat":           _config.GossipLearn.HeartbeatTimeout,
		"eta":                 _config.GossipLearn.Eta,
		"codec":               _config.GossipLearn.Codec,
		"model":               _config.GossipLearn.Model,
		"features":            _config.GossipLearn.Features,
		"models":              _config.GossipLearn.Models,
		"learner":             _config.GossipLearn.Learner,
		"selector":            _config.GossipLearn.Selector,
		"store":               _config.GossipLearn.Store,
		"db":                  _config.GossipLearn.DatabaseDir,
		"bootstrap":           _config.GossipLearn.Bootstrap,
		"checkpoint-interval": _config.GossipLearn.CheckpointInterval,
		"data":                _config.GossipLearn.DataFile,
		"moniker":             _config.GossipLearn.Moniker,
		"log":                 _config.GossipLearn.LogLevel,
	}).Debug("RUN CONFIG")

	return nil
}
