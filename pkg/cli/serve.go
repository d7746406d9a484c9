package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adfharrison1/neemo/pkg/config"
	"github.com/adfharrison1/neemo/pkg/server"
)

// shutdownTimeout bounds in-flight requests after a stop signal.
const shutdownTimeout = 30 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Long: `Serve the document API over HTTP. Mutations answer 202 Accepted with an
operation id that can be polled at /operations/{id}. The server stops on
SIGINT or SIGTERM after in-flight requests finish and queued operations
are applied.`,
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), v)
		},
	}

	key := "addr"
	cmd.Flags().String(key, ":8080", config.WrapString("The address on which the API will listen"))
	return cmd
}

func runServer(ctx context.Context, v *viper.Viper) error {
	s, err := openSession(v)
	if err != nil {
		return err
	}
	defer s.closer.Close()

	srv := server.NewServer(s.mgr, s.logger)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(s.cfg.Addr)
	}()

	select {
	case err = <-errCh:
		// The listener failed before any signal; the databases still need closing.
		if cerr := srv.Shutdown(context.Background()); err == nil {
			err = cerr
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Infof("[cli] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
