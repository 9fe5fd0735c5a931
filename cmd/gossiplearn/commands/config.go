package commands

import (
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/gossiplearn/src/config"
	"github.com/mosaicnetworks/gossiplearn/src/sim"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//CLIConfig contains configuration for the Run and Simulate commands
type CLIConfig struct {
	GossipLearn config.Config `mapstructure:",squash"`
	Sim         sim.Config    `mapstructure:",squash"`
	Cycles      int           `mapstructure:"cycles"`
	LogDir      string        `mapstructure:"log-dir"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		GossipLearn: *config.NewDefaultConfig(),
		Sim:         *sim.NewDefaultConfig(),
		Cycles:      50,
	}
}

// addNodeFlags registers the flags that configure the learning and the
// protocol, shared by run and simulate.
func addNodeFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.GossipLearn.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.GossipLearn.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-dir", _config.LogDir, "Also write logs to per-level files in this directory")

	// Protocol
	cmd.Flags().Duration("heartbeat", _config.GossipLearn.HeartbeatTimeout, "Mean time between gossip rounds")
	cmd.Flags().Float64("eta", _config.GossipLearn.Eta, "Averaging rate of an exchange, in (0,1]")
	cmd.Flags().String("codec", _config.GossipLearn.Codec, "Model compression codec (identity, float32, adaptive)")
	cmd.Flags().String("selector", _config.GossipLearn.Selector, "Peer selection (random, shuffle)")

	// Learning
	cmd.Flags().String("model", _config.GossipLearn.Model, "Model kind (linear, sparse)")
	cmd.Flags().Int("features", _config.GossipLearn.Features, "Number of features of linear models")
	cmd.Flags().Int("models", _config.GossipLearn.Models, "Number of models held by every node")
	cmd.Flags().String("learner", _config.GossipLearn.Learner, "Local training algorithm")
	cmd.Flags().Float64("learning-rate", _config.GossipLearn.LearningRate, "Learning rate of the learner")
	cmd.Flags().Float64("lambda", _config.GossipLearn.Lambda, "Regularization of the learner")
	cmd.Flags().Int("epochs", _config.GossipLearn.Epochs, "Passes over the local data per round")
	cmd.Flags().Int("batches", _config.GossipLearn.Batches, "Mini-batches per epoch")
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/gossiplearn.toml (.json, .yaml also
	// work)
	viper.SetConfigName("gossiplearn")
	viper.AddConfigPath(_config.GossipLearn.DataDir)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.GossipLearn.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.GossipLearn.Logger().Debugf("No config file found in: %s", _config.GossipLearn.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db or --data, this will
	// update the defaults to be inside the new datadir
	_config.GossipLearn.SetDataDir(_config.GossipLearn.DataDir)

	// the config file may have changed the log level
	logger := _config.GossipLearn.Logger().Logger
	logger.SetLevel(config.LogLevel(_config.GossipLearn.LogLevel))

	if _config.LogDir != "" {
		return addFileHooks(logger, _config.LogDir)
	}

	return nil
}

// addFileHooks copies log entries to one file per level in dir.
func addFileHooks(logger *logrus.Logger, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	pathMap := lfshook.PathMap{}
	for _, level := range []logrus.Level{
		logrus.DebugLevel,
		logrus.InfoLevel,
		logrus.WarnLevel,
		logrus.ErrorLevel,
	} {
		pathMap[level] = filepath.Join(dir, "gossiplearn_"+level.String()+".log")
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))

	return nil
}
