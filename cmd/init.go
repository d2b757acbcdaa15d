package cmd

import (
	"fmt"
	"os"

	"github.com/emberlink/ember/state"
	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// initCmd scaffolds a fresh node config.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new node config",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("%s already exists, refusing to overwrite\n", configPath)
			os.Exit(1)
		}

		gateway, _ := cmd.Flags().GetBool("gateway")
		repeater, _ := cmd.Flags().GetBool("repeater")
		listen, _ := cmd.Flags().GetString("listen")

		cfg := state.NodeCfg{
			Network:   uuid.NewString(),
			NodeID:    state.AutoAddress,
			ParentID:  state.AutoAddress,
			Gateway:   gateway,
			Repeater:  repeater,
			StorePath: "ember-store.yaml",
			Listen:    listen,
		}
		if gateway {
			cfg.NodeID = state.GatewayAddress
			cfg.StoreDriver = "sqlite"
			cfg.StorePath = "ember-store.sqlite"
		}

		bytes, err := yaml.Marshal(cfg)
		if err != nil {
			panic(err)
		}
		if err := os.WriteFile(configPath, bytes, 0600); err != nil {
			panic(err)
		}
		fmt.Printf("wrote %s\n", configPath)
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("gateway", false, "Configure this node as the gateway")
	initCmd.Flags().Bool("repeater", false, "Enable the repeater feature")
	initCmd.Flags().String("listen", "0.0.0.0:57600", "UDP radio bind address")
}
