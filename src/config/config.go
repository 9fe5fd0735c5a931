package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/gossiplearn/src/codec"
	"github.com/mosaicnetworks/gossiplearn/src/common"
	"github.com/mosaicnetworks/gossiplearn/src/model"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultDataFile is the default name of the file containing the local
	// training data.
	DefaultDataFile = "data.svm"
)

// Peer selection strategies.
const (
	RandomSelector  = "random"
	ShuffleSelector = "shuffle"
)

// Default configuration values.
const (
	DefaultLogLevel           = "debug"
	DefaultBindAddr           = "127.0.0.1:1337"
	DefaultServiceAddr        = "127.0.0.1:8000"
	DefaultHeartbeatTimeout   = 1000 * time.Millisecond
	DefaultTCPTimeout         = 1000 * time.Millisecond
	DefaultMaxPool            = 2
	DefaultEta                = 0.5
	DefaultCodec              = codec.AdaptiveName
	DefaultModel              = model.LinearKind
	DefaultFeatures           = 10
	DefaultLearner            = model.LogRegName
	DefaultLearningRate       = 1.0
	DefaultLambda             = 0.0001
	DefaultEpochs             = 1
	DefaultBatches            = 1
	DefaultModels             = 1
	DefaultSelector           = RandomSelector
	DefaultStore              = false
	DefaultCheckpointInterval = 10
)

// Config contains all the configuration properties of a gossip learning node.
type Config struct {
	// DataDir is the top-level directory containing the node's configuration
	// and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// BindAddr is the local address:port where this node gossips with other
	// nodes. In some cases, there may be a routable address that cannot be
	// bound. Use AdvertiseAddr to advertise a different address to support
	// this.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service. If not
	// specified, and "no-service" is not set, the API handlers are registered
	// with the DefaultServerMux of the http package.
	ServiceAddr string `mapstructure:"service-listen"`

	// HeartbeatTimeout is the mean delay between two gossip rounds. Each
	// round waits a random duration between one and two times this value.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat"`

	// TCPTimeout is the dial and write timeout of gossip connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// MaxPool controls how many connections are pooled per target.
	MaxPool int `mapstructure:"max-pool"`

	// Eta is the averaging rate of a push-pull exchange. With Eta=1 both
	// peers end up with the mean of their models.
	Eta float64 `mapstructure:"eta"`

	// Codec names the scalar codec used to compress models on the wire.
	Codec string `mapstructure:"codec"`

	// CodecParams are passed to the codec constructor.
	CodecParams map[string]float64 `mapstructure:"codec-params"`

	// Model is the kind of the models gossiped by the node.
	Model string `mapstructure:"model"`

	// Features is the number of input features of dense models.
	Features int `mapstructure:"features"`

	// Learner names the local training algorithm.
	Learner string `mapstructure:"learner"`

	model.LearnerParams `mapstructure:",squash"`

	// Epochs is the number of passes over the local data per round.
	Epochs int `mapstructure:"epochs"`

	// Batches is the number of mini-batches the local data is split into.
	Batches int `mapstructure:"batches"`

	// Models is the number of models each node holds and gossips.
	Models int `mapstructure:"models"`

	// Selector is the peer selection strategy, "random" or "shuffle".
	Selector string `mapstructure:"selector"`

	// Store activates persistant storage of model checkpoints.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Bootstrap determines whether or not to restore the models from the last
	// checkpoint in the database. Forces Store.
	Bootstrap bool `mapstructure:"bootstrap"`

	// CheckpointInterval is the number of rounds between two checkpoints.
	CheckpointInterval int `mapstructure:"checkpoint-interval"`

	// DataFile is the path of the local training data. Defaults to data.svm
	// in DataDir.
	DataFile string `mapstructure:"data"`

	// Moniker defines the friendly name of this node
	Moniker string `mapstructure:"moniker"`

	// Dataset, when set, is used as the local training data instead of
	// DataFile.
	Dataset model.Dataset `mapstructure:"-"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:          DefaultDataDir(),
		LogLevel:         DefaultLogLevel,
		BindAddr:         DefaultBindAddr,
		ServiceAddr:      DefaultServiceAddr,
		HeartbeatTimeout: DefaultHeartbeatTimeout,
		TCPTimeout:       DefaultTCPTimeout,
		MaxPool:          DefaultMaxPool,
		Eta:              DefaultEta,
		Codec:            DefaultCodec,
		CodecParams:      map[string]float64{},
		Model:            DefaultModel,
		Features:         DefaultFeatures,
		Learner:          DefaultLearner,
		LearnerParams: model.LearnerParams{
			LearningRate: DefaultLearningRate,
			Lambda:       DefaultLambda,
		},
		Epochs:             DefaultEpochs,
		Batches:            DefaultBatches,
		Models:             DefaultModels,
		Selector:           DefaultSelector,
		Store:              DefaultStore,
		DatabaseDir:        DefaultDatabaseDir(),
		CheckpointInterval: DefaultCheckpointInterval,
		DataFile:           DefaultDataPath(),
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// and data file if they are currently set to their default values. If they are
// not the default, it means the user has explicitely set them to something
// else, so avoid changing them again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
	if c.DataFile == DefaultDataPath() {
		c.DataFile = filepath.Join(dataDir, DefaultDataFile)
	}
}

// Validate checks that the protocol and learning parameters make sense.
func (c *Config) Validate() error {
	if !(c.Eta > 0 && c.Eta <= 1) {
		return fmt.Errorf("eta must be in (0,1], got %v", c.Eta)
	}
	if _, err := codec.New(c.Codec, c.CodecParams); err != nil {
		return fmt.Errorf("codec: %w", err)
	}
	if _, err := model.New(c.Model); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if _, err := model.NewLearner(c.Learner, c.LearnerParams); err != nil {
		return fmt.Errorf("learner: %w", err)
	}
	if c.Models < 1 {
		return fmt.Errorf("models must be positive, got %d", c.Models)
	}
	if c.Model == model.LinearKind && c.Features < 1 {
		return fmt.Errorf("features must be positive, got %d", c.Features)
	}
	if c.Epochs < 0 || c.Batches < 0 {
		return fmt.Errorf("epochs and batches cannot be negative")
	}
	if c.Selector != RandomSelector && c.Selector != ShuffleSelector {
		return fmt.Errorf("unknown selector %q", c.Selector)
	}
	if c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat must be positive, got %v", c.HeartbeatTimeout)
	}
	return nil
}

// Logger returns a formatted logrus Entry, with prefix set to "gossiplearn".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "gossiplearn")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataPath returns the default path of the local training data.
func DefaultDataPath() string {
	return filepath.Join(DefaultDataDir(), DefaultDataFile)
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".GossipLearn")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "GossipLearn")
		} else {
			return filepath.Join(home, ".gossiplearn")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
