package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skyfence/detection-api/internal/api"
	"github.com/skyfence/detection-api/internal/model"
	"github.com/skyfence/detection-api/internal/streams"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the detection API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		reg := streams.New(streamInfos())
		srv := api.NewServer(st, reg)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("driver", cfg.Store.Driver),
			zap.Int("streams", reg.Len()),
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// streamInfos converts configured stream entries into registry values.
func streamInfos() []model.StreamInfo {
	infos := make([]model.StreamInfo, 0, len(cfg.Streams))
	for _, sc := range cfg.Streams {
		infos = append(infos, model.StreamInfo{
			Name:        sc.Name,
			Description: sc.Description,
			RTSPURL:     sc.RTSPURL,
			HLSURL:      sc.HLSURL,
			Status:      sc.Status,
		})
	}
	return infos
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
