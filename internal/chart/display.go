package chart

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// DisplayConfig configures the interactive chart surface.
type DisplayConfig struct {
	// ListenAddr is the loopback address the page is served on. Port 0 picks a free port.
	ListenAddr string
	// OpenBrowser opens the page in the system browser once serving.
	OpenBrowser bool
	// Open overrides how the browser is launched.
	Open func(url string) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// NewHandler serves page at the root path.
func NewHandler(page []byte) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

// Display serves page until ctx is cancelled, opening it in the browser
// unless disabled.
func Display(ctx context.Context, page []byte, cfg DisplayConfig) error {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:0"
	}
	if cfg.Open == nil {
		cfg.Open = browser.OpenURL
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           NewHandler(page),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	url := fmt.Sprintf("http://%s/", ln.Addr().String())
	cfg.Logger.Info().Str("url", url).Msg("chart ready, press Ctrl+C to exit")
	if cfg.OpenBrowser {
		if err := cfg.Open(url); err != nil {
			cfg.Logger.Warn().Err(err).Msg("open browser failed, visit the url manually")
		}
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown chart server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve chart: %w", err)
	}
}
