package cmd

import (
	"log/slog"
	"os"

	"github.com/emberlink/ember/core"
	"github.com/emberlink/ember/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run ember",
	Long:  `This will run the ember transport on the current host, joining the mesh configured in the node config.`,
	Run: func(cmd *cobra.Command, args []string) {
		var cfg state.NodeCfg
		file, err := os.ReadFile(configPath)
		if err != nil {
			panic(err)
		}
		err = yaml.Unmarshal(file, &cfg)
		if err != nil {
			panic(err)
		}

		err = state.NodeConfigValidator(&cfg)
		if err != nil {
			panic(err)
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		err = core.Start(cfg, level)
		if err != nil {
			panic(err)
		}
	},
	GroupID: "em",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
