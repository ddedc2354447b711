package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CK6170/Spectro-go/configs"
	"github.com/CK6170/Spectro-go/hardware"
	"github.com/CK6170/Spectro-go/internal/server"
	"github.com/CK6170/Spectro-go/logs"
	"github.com/CK6170/Spectro-go/peakfit"
	"github.com/CK6170/Spectro-go/results"
	serialpkg "github.com/CK6170/Spectro-go/serial"
	"github.com/CK6170/Spectro-go/spectrum"
)

func main() {
	var (
		configPath = flag.String("config", "spectro.cue", "CUE config file")
		listen     = flag.String("listen", "", "serve the command channel on this TCP address instead of the serial device")
		monitor    = flag.String("monitor", "", "http monitor address (overrides MONITOR)")
		readDelay  = flag.Duration("sim-delay", 100*time.Millisecond, "simulated spectrometer read time")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	logger := logs.New(os.Stderr)
	logs.SetDebug(*debug)

	if err := run(logger, *configPath, *listen, *monitor, *readDelay, *debug); err != nil {
		logger.Error("spectrod", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath, listen, monitor string, readDelay time.Duration, debug bool) error {
	var paths []string
	if _, err := os.Stat(configPath); err == nil {
		paths = append(paths, configPath)
	} else if isFlagSet("config") {
		return err
	} else {
		logger.Info("no config file, using defaults", "path", configPath)
	}
	p, err := configs.LoadParameters(paths...)
	if err != nil {
		return err
	}
	logs.SetDebug(debug || p.DEBUG)
	if listen == "" {
		listen = p.LISTEN
	}
	if monitor == "" {
		monitor = p.MONITOR
	}

	store, err := results.Open(p.RESULTS)
	if err != nil {
		return err
	}

	table := spectrum.Linear(p.CALIBRATION.START, p.CALIBRATION.STEP, p.CALIBRATION.POINTS)
	rig := hardware.NewSimRig(table, readDelay, logger)

	var fitter peakfit.Fitter = peakfit.GaussFitter{}
	if len(p.PEAKFIT.COMMAND) > 0 {
		fitter = &peakfit.ExecFitter{
			Command: p.PEAKFIT.COMMAND,
			Dir:     p.PEAKFIT.DIR,
			Timeout: time.Duration(p.PEAKFIT.TIMEOUTMS) * time.Millisecond,
		}
		logger.Info("external peak fit", "command", p.PEAKFIT.COMMAND)
	}

	srv, err := server.New(server.Config{
		Rig:              rig,
		Fitter:           fitter,
		Store:            store,
		Defaults:         *p.DEFAULTS,
		Logger:           logger,
		PressureInterval: time.Duration(p.PRESSUREMS) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if monitor != "" {
		hs := &http.Server{Addr: monitor, Handler: srv.Handler()}
		go func() {
			logger.Info("monitor", "url", fmt.Sprintf("http://%s/api/status", monitor))
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("monitor", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = hs.Shutdown(shutdownCtx)
		}()
	}

	var l server.Listener
	if listen != "" {
		tl, err := server.ListenTCP(listen)
		if err != nil {
			return err
		}
		l = tl
	} else {
		device := p.SERIAL.PORT
		if device == "" {
			device = serialpkg.AutoDetectPort(p.SERIAL.BAUDRATE)
		}
		if device == "" {
			device = serialpkg.DefaultDevice
		}
		l = &serialpkg.Listener{Device: device, Baud: p.SERIAL.BAUDRATE, Logger: logger}
	}
	defer l.Close()

	err = srv.Serve(ctx, l)
	// an unfinished experiment is discarded on shutdown
	_ = srv.Machine().Stop()
	logger.Info("spectrod stopped", "results", store.Dir())
	return err
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
