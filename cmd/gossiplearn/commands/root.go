package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for gossiplearn
var RootCmd = &cobra.Command{
	Use:              "gossiplearn",
	Short:            "decentralized learning by push-pull gossip",
	TraverseChildren: true,
}
