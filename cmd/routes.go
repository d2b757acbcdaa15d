package cmd

import (
	"fmt"
	"os"

	"github.com/emberlink/ember/impl"
	"github.com/emberlink/ember/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:     "routes",
	Short:   "Inspect or clear the persisted routing table",
	GroupID: "em",
}

func openStore() (state.Store, func(), error) {
	var cfg state.NodeCfg
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, nil, err
	}
	if cfg.StoreDriver == "sqlite" {
		s, err := impl.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	s, err := impl.NewFileStore(cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}

var routesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the routing table",
	Run: func(cmd *cobra.Command, args []string) {
		store, closeStore, err := openStore()
		if err != nil {
			panic(err)
		}
		defer closeStore()
		dumper, ok := store.(state.RouteDumper)
		if !ok {
			fmt.Println("store does not support enumeration")
			os.Exit(1)
		}
		routes, err := dumper.Routes()
		if err != nil {
			panic(err)
		}
		if len(routes) == 0 {
			fmt.Println("no routes")
			return
		}
		for dest, next := range routes {
			fmt.Printf("%3d via %3d\n", dest, next)
		}
	},
}

var routesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the routing table",
	Run: func(cmd *cobra.Command, args []string) {
		store, closeStore, err := openStore()
		if err != nil {
			panic(err)
		}
		defer closeStore()
		if err := store.ClearRoutes(); err != nil {
			panic(err)
		}
		fmt.Println("routing table cleared")
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.AddCommand(routesShowCmd)
	routesCmd.AddCommand(routesClearCmd)
}
