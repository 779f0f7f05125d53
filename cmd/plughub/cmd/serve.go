package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/andrei-cloud/plughub/internal/config"
	"github.com/andrei-cloud/plughub/internal/logging"
	"github.com/andrei-cloud/plughub/internal/plugins"
	"github.com/andrei-cloud/plughub/internal/server"
	"github.com/andrei-cloud/plughub/internal/version"
)

var (
	addr  string
	debug bool
	human bool
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the plugin host server",
	Long:  `Start the plughub server: discover and load WASM plugins, watch them for changes and serve their commands over TCP.`,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := config.Initialize(); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize configuration")
		}
		cfg := config.Get()

		logging.InitLogger(
			debug || cfg.Log.Level == "debug",
			human || cfg.Log.Format == "console",
		)

		hostVersion := cfg.Host.Version
		if hostVersion == "" {
			hostVersion = version.Version
		}

		cachePath := ""
		if cfg.Plugin.Cache {
			cachePath = plugins.DefaultCachePath()
		}

		mgr, err := plugins.NewManager(cmd.Context(), plugins.Options{
			SearchPaths: cfg.SearchPaths(),
			Allow:       cfg.AllowList(),
			Deny:        cfg.DenyList(),
			CachePath:   cachePath,
			HostVersion: hostVersion,
			Config:      config.GetViper(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize plugin manager")
		}

		if err := mgr.LoadAll(); err != nil {
			log.Fatal().Err(err).Msg("failed to load plugins")
		}

		// Watch search paths for plugin file changes.
		var watcher *plugins.ReloadManager
		if cfg.Plugin.Watch {
			debounce := time.Duration(cfg.Plugin.DebounceMs) * time.Millisecond
			watcher, err = plugins.NewReloadManager(mgr, cfg.SearchPaths(), debounce)
			if err != nil {
				log.Error().Err(err).Msg("file watching disabled")
				watcher = nil
			} else {
				watcher.Start(cmd.Context())
			}
		}

		if addr == "" {
			addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		}

		srv, err := server.NewServer(addr, mgr)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize server")
		}

		// Run a full load cycle on SIGHUP.
		reloadChan := make(chan os.Signal, 1)
		signal.Notify(reloadChan, syscall.SIGHUP)
		go func() {
			for range reloadChan {
				if err := mgr.LoadAll(); err != nil {
					log.Error().Err(err).Msg("failed to reload plugins")
				} else {
					log.Info().Msg("plugins reloaded")
				}
			}
		}()

		// Ensure the stop channel is closed only once.
		var stopOnce sync.Once
		stopChan := make(chan os.Signal, 1)
		signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-stopChan
			log.Info().Msgf("signal %v received, shutting down server", sig)

			stopOnce.Do(func() {
				if err := srv.Stop(); err != nil {
					log.Error().Err(err).Msg("failed to stop server")
				}
				close(stopChan)
			})
		}()

		// Start the server.
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}

		// Block until a termination signal has been handled.
		<-stopChan

		if watcher != nil {
			if err := watcher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to stop file watcher")
			}
		}

		if err := mgr.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close plugin manager")
		}

		log.Info().Msg("server stopped gracefully")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides configuration)")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&human, "human", false, "Enable human-readable logs")
}
