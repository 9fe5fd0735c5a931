package commands

import (
	"fmt"

	"github.com/mosaicnetworks/gossiplearn/src/sim"
	"github.com/spf13/cobra"
)

//NewSimulateCmd returns the command that runs an in-memory network of nodes
//learning a synthetic dataset
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Simulate a network of nodes in memory",
		PreRunE: loadSimConfig,
		RunE:    runSimulation,
	}
	AddSimulateFlags(cmd)
	return cmd
}

func loadSimConfig(cmd *cobra.Command, args []string) error {
	return bindFlagsLoadViper(cmd)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	s, err := sim.NewSimulation(&_config.Sim, &_config.GossipLearn)
	if err != nil {
		return err
	}
	defer s.Shutdown()

	s.Run(_config.Cycles, func(c sim.Cycle) {
		fmt.Println(c)
	})

	return nil
}

//AddSimulateFlags adds flags to the Simulate command
func AddSimulateFlags(cmd *cobra.Command) {
	addNodeFlags(cmd)

	cmd.Flags().IntP("nodes", "n", _config.Sim.Nodes, "Number of nodes")
	cmd.Flags().Int("instances", _config.Sim.Instances, "Training instances per node")
	cmd.Flags().Int("test-instances", _config.Sim.TestInstances, "Instances of the shared test set")
	cmd.Flags().Float64("drop-rate", _config.Sim.DropRate, "Probability that a message is lost")
	cmd.Flags().Duration("min-latency", _config.Sim.MinLatency, "Minimum delivery delay")
	cmd.Flags().Duration("max-latency", _config.Sim.MaxLatency, "Maximum delivery delay")
	cmd.Flags().Int64("seed", _config.Sim.Seed, "Seed of the synthetic dataset")
	cmd.Flags().IntP("cycles", "c", _config.Cycles, "Number of cycles, one heartbeat each")
}
