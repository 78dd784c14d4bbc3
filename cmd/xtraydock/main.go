package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/xtraydock/internal/bus"
	"github.com/bnema/xtraydock/internal/config"
	"github.com/bnema/xtraydock/internal/logging"
	"github.com/bnema/xtraydock/internal/tray"
	"github.com/bnema/xtraydock/internal/xconn"
)

var version = "dev"

type options struct {
	configPath string
	logLevel   string
	delay      time.Duration
	display    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	root := &cobra.Command{
		Use:           "xtraydock",
		Short:         "X11 system tray host for status bars",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "path to the TOML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.DurationVar(&opts.delay, "delay", 0, "delay before claiming the tray selection")
	flags.StringVar(&opts.display, "display", "", "X display to connect to (defaults to $DISPLAY)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("xtraydock " + version)
		},
	})
	return root
}

func run(cmd *cobra.Command, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if cmd.Flags().Changed("delay") {
		cfg.Tray.ActivationDelay.Duration = opts.delay
	}

	log, err := logging.New(cfg.Logging())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	disp, err := xconn.Dial(opts.display, log)
	if err != nil {
		return err
	}
	defer disp.Close()

	managerOpts := []tray.Option{tray.WithLogger(log)}
	svc := connectBus(log)
	if svc != nil {
		defer svc.Close()
		managerOpts = append(managerOpts, tray.WithNotifier(svc))
	}

	manager := tray.NewManager(disp, settings, managerOpts...)
	if svc != nil {
		svc.SetPoster(manager)
	}

	log.Info("xtraydock starting",
		zap.String("version", version),
		zap.String("position", settings.Position.String()),
		zap.Duration("delay", cfg.Tray.ActivationDelay.Duration))

	g, ctx := errgroup.WithContext(ctx)
	// The pump outlives the manager so teardown requests still reach the
	// server.
	pumpCtx, stopPump := context.WithCancel(context.Background())
	g.Go(func() error {
		defer stopPump()
		return manager.Run(ctx)
	})
	g.Go(func() error {
		return disp.Pump(pumpCtx, manager.Post)
	})
	if opts.configPath != "" {
		g.Go(func() error {
			err := config.Watch(ctx, opts.configPath, log, func(next config.Config) {
				s, err := next.Settings()
				if err != nil {
					log.Warn("ignoring reloaded config", zap.Error(err))
					return
				}
				manager.Post(tray.SettingsChanged{Settings: s})
			})
			if err != nil && ctx.Err() == nil {
				log.Warn("config reload disabled", zap.Error(err))
			}
			return nil
		})
	}

	manager.ActivateDelayed(cfg.Tray.ActivationDelay.Duration)

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info("xtraydock stopped")
		return nil
	}
	return err
}

// connectBus exports the control service on the session bus. The tray
// still works without one, it just cannot be controlled or observed.
func connectBus(log *zap.Logger) *bus.Service {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		log.Warn("session bus unavailable, running without control interface", zap.Error(err))
		return nil
	}
	svc := bus.NewService(conn)
	if err := svc.Export(); err != nil {
		log.Warn("export bus service", zap.Error(err))
		conn.Close()
		return nil
	}
	log.Debug("bus service exported", zap.String("name", bus.ServiceName))
	return svc
}
