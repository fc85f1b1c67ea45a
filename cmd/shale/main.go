package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "shale",
		Short: "A minimal single-threaded HTTP/1.1 server with SSE pub/sub",
		Long: `Shale is a minimal HTTP/1.1 server for small applications and
prototypes. One event loop services every connection, handlers are
declared with typed parameters, and server-sent events give cheap
push over plain HTTP. Run it behind a reverse proxy for TLS.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the shale version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("shale", version)
		},
	}
}
