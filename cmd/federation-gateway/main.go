package main

import (
	"github.com/n9te9/go-graphql-federation-gateway/server"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Federation Gateway",
	Run: func(cmd *cobra.Command, args []string) {
		println("Federation Gateway v0.0.0-rc")
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new Federation Gateway project",
	Run: func(cmd *cobra.Command, args []string) {
		if err := server.Init(); err != nil {
			panic(err)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Federation Gateway server",
	Run: func(cmd *cobra.Command, args []string) {
		server.Run()
	},
}

var configPath, listenAddr, registryAddr string

var serveEndpointsCmd = &cobra.Command{
	Use:   "serve-endpoints",
	Short: "Start the multi-endpoint Federation Gateway server from a config file",
	Run: func(cmd *cobra.Command, args []string) {
		server.RunEndpointGateway(configPath, listenAddr, registryAddr)
	},
}

func init() {
	serveEndpointsCmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the gateway config file")
	serveEndpointsCmd.Flags().StringVar(&listenAddr, "addr", ":4000", "address to serve GraphQL endpoints on")
	serveEndpointsCmd.Flags().StringVar(&registryAddr, "registry-addr", ":4001", "address to serve the subgraph registry on")
}

func main() {
	rootCmd := cobra.Command{}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(serveEndpointsCmd)

	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
