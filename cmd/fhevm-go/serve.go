package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/universal-fhevm/fhevm-go/internal/cliconfig"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/fhevmfx"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/ginfhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/provider"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(bootstrap bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the FHE operations and /metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := cliconfig.Load(cmd.Flags())
			if err != nil {
				return err
			}
			log, err := newLogger(s.LogLevel, s.LogFormat, s.LogFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			boot, err := bootstrap(s)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), serverOptions(s, log, boot))
		},
	}
}

func serverOptions(s cliconfig.Settings, log *zap.Logger, boot fhevm.Bootstrapper) fx.Option {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return fx.Options(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Supply(log, reg),
		fx.Provide(func() prometheus.Registerer { return reg }),
		fhevmfx.Module(s.Config, fhevmfx.WithClientOptions(fhevm.WithBootstrapper(boot))),
		fx.Supply(fx.Annotated{Name: "listen", Target: s.Listen}),
		fx.Provide(newRouter),
		fx.Invoke(startHTTP),
	)
}

// runServer runs the application until ctx is done or fx is asked to stop.
func runServer(ctx context.Context, opts fx.Option) error {
	app := fx.New(opts)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, fx.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-app.Wait():
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return app.Stop(stopCtx)
}

func newRouter(p *provider.Provider, reg *prometheus.Registry, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), ginfhevm.RequestID(), accessLog(log.Named("http")))
	ginfhevm.Register(r, p)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	return r
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Debug("request", fields...)
		}
	}
}

type httpParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Router     *gin.Engine
	Log        *zap.Logger
	Listen     string `name:"listen"`
}

func startHTTP(p httpParams) {
	srv := &http.Server{
		Handler:           p.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", p.Listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", p.Listen, err)
			}
			p.Log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Log.Error("http server stopped", zap.Error(err))
					_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
