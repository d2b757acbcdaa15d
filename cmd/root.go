package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath = "node.yaml"

var rootCmd = &cobra.Command{
	Use:   "ember",
	Short: "Ember Sensor Mesh Transport",
	Long: `Ember is the transport core of a low-power wireless sensor mesh.
It forms a self-healing multi-hop network of leaf nodes, repeaters and a
single gateway, and keeps application messages flowing across lost parents,
changing topology and radio faults.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Initialize Ember",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "em",
		Title: "Ember Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "n", configPath, "node-specific config")
}
