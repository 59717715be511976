package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"autopress/internal/apihandlers"
)

var (
	serveAddr    string // Listen address
	servePort    string // Listen port
	serveRelease bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run autopress as an HTTP API server",
	Long: `Starts an HTTP server exposing publishing, taxonomy resolution and the run
ledger via a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := cmsApp(cmd)
		if err != nil {
			return err
		}
		if err := appInstance.Config.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if serveRelease {
			gin.SetMode(gin.ReleaseMode)
		}

		router := apihandlers.NewRouter(apihandlers.NewAPIHandler(appInstance))

		listenAddr := fmt.Sprintf("%s:%s", serveAddr, servePort)
		log.Infof("Starting autopress API server on http://%s", listenAddr)
		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost", "Address to listen on (e.g., '0.0.0.0' for all interfaces)")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")
	serveCmd.Flags().BoolVar(&serveRelease, "release", false, "Run gin in release mode")
}
