package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/imagevault/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the asset ingestion HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := app.NewApp(configPath)

		return a.Run()
	},
}

// registerServeCommands 注册 HTTP 服务命令.
func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
}
