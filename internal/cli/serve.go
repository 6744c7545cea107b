package cli

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve flag resolutions and gate checks over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newServices(cmd)
			if err != nil {
				return err
			}
			defer s.Close(context.WithoutCancel(cmd.Context()))

			ln, err := net.Listen("tcp", s.config.Serve.Address)
			if err != nil {
				return errors.WithStack(err)
			}
			return s.serve(cmd.Context(), ln)
		},
	}
	cmd.Flags().String("serve.address", "", "Address to listen on.")
	return cmd
}

// serve answers on ln until ctx is done, then drains in-flight requests.
func (s *services) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           newRouter(s),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Readiness does not depend on it, the local table answers meanwhile.
		_ = s.resolver.Warmup(gctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info(ctx, "serving feature flags", attribute.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.WithStack(err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Serve.ShutdownTimeout)
		defer cancel()
		s.logger.Info(ctx, "shutting down")
		return errors.WithStack(srv.Shutdown(sctx))
	})
	return g.Wait()
}
