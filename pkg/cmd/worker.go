package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/imagevault/pkg/app"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "start the image variant generation worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunWorker(configPath)
	},
}

// registerWorkerCommands 注册变体生成工作器命令.
func registerWorkerCommands() {
	rootCmd.AddCommand(workerCmd)
}
