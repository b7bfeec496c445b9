package serve

import (
	"github.com/spf13/cobra"

	"github.com/smart-attendance/attendance-go/internal/conf"
	"github.com/smart-attendance/attendance-go/internal/server"
)

// Command creates the serve command, which runs the attendance service.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the attendance service",
		Long:  "Start the HTTP API, attendance processor and notification worker.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Run(settings)
		},
	}
}
