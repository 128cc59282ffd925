package cli

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ralt/pkgrelay/internal/appstate"
	"github.com/ralt/pkgrelay/internal/config"
	"github.com/ralt/pkgrelay/internal/httpapi"
)

// NewServeCmd boots the gateway: load config, wire appstate, start the HTTP
// (and, if certificates are configured, HTTPS) listener.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the repository gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			state, err := appstate.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer state.Close(ctx)

			handler := httpapi.New(state)

			errCh := make(chan error, 2)

			go func() {
				logrus.WithField("port", cfg.HTTPPort).Info("listening for HTTP")
				errCh <- http.ListenAndServe(":"+cfg.HTTPPort, handler)
			}()

			if cfg.TLSEnabled() {
				go func() {
					logrus.WithField("port", cfg.HTTPSPort).Info("listening for HTTPS")
					errCh <- serveTLS(cfg, handler)
				}()
			}

			return <-errCh
		},
	}
}

// serveTLS starts an HTTPS listener from the in-memory cert/key PEM pair,
// rather than requiring them as files on disk (spec.md §6's PACKHUB_CERT_PEM
// / PACKHUB_KEY_PEM carry the material itself).
func serveTLS(cfg *config.Config, handler http.Handler) error {
	cert, err := tls.X509KeyPair([]byte(cfg.CertPEM), []byte(cfg.KeyPEM))
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:      ":" + cfg.HTTPSPort,
		Handler:   handler,
		TLSConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
	}
	return server.ListenAndServeTLS("", "")
}
