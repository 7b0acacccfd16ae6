// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"audiolink/cmd"
	"audiolink/internal/analysis"
	"audiolink/internal/audio"
	"audiolink/internal/config"
	"audiolink/internal/link"
	applog "audiolink/internal/log"
	"audiolink/internal/server"
	"audiolink/internal/storage"
	"audiolink/internal/transport"
	"audiolink/internal/transport/udp"
	"audiolink/internal/tui"
	"audiolink/internal/wav"
	"audiolink/pkg/build"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// main is the entry point for the audio link application.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//   - Open playback and build the pipeline
//
// 2. Concurrent Phase (Hot Path):
//   - Connect the link and start recording or tuning if requested
//   - Serve the control API and websocket
//   - Publish spectrum packets over UDP
//   - Show the terminal monitor
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Close the pipeline, saving an active recording
//   - Release playback and transports
func main() {
	if err := run(); err != nil {
		// The monitor may have moved logging into a file that is closed by now.
		applog.SetOutput(os.Stderr, true)
		applog.Fatalf("%v", err)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		applog.Debugf("Build info incomplete: %v", err)
	}

	inv, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		return err
	}
	if inv == nil {
		return nil
	}
	cfg := inv.Config
	applog.SetLevel(cfg.Level())

	switch inv.Command {
	case cmd.CommandList:
		return listDevices()
	case cmd.CommandInspect:
		return inspect(inv.Args[0])
	}

	if cfg.Monitor.Enabled {
		logFile, err := afero.NewOsFs().OpenFile(cfg.Monitor.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("monitor log: %w", err)
		}
		defer logFile.Close()
		applog.SetOutput(logFile, false)
	}

	if cfg.Playback.Backend == config.PlaybackPortAudio {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer func() {
			if err := audio.Terminate(); err != nil {
				applog.Warnf("%v", err)
			}
		}()
	}

	playback, err := openPlayback(cfg)
	if err != nil {
		return err
	}
	defer playback.Close()

	transform, err := cfg.Transform()
	if err != nil {
		return err
	}
	analyzer, err := analysis.NewSpectrumAnalyzer(transform, cfg.SampleFormat(),
		float64(cfg.Link.SampleRate), cfg.WindowFunc())
	if err != nil {
		return err
	}

	sink, err := storage.NewDirSink(afero.NewOsFs(), cfg.Recording.OutputDir)
	if err != nil {
		return err
	}

	hub := transport.NewWebSocketHub()
	defer hub.Close()

	pipeline, err := audio.NewPipeline(audio.Options{
		Connector:     connector(cfg),
		Playback:      playback,
		Analyzer:      analyzer,
		Sink:          sink,
		Notifier:      transport.Multi{hub, transport.NewLoggingTransport()},
		BufferSize:    cfg.Link.BufferSize,
		FrameSize:     cfg.Tuning.FrameSize,
		QueueCapacity: cfg.Link.QueueCapacity,
		ZeroOffset:    byte(cfg.Link.ZeroOffset),
		WavFormat:     cfg.WavFormat(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			applog.Errorf("Error closing pipeline: %v", err)
		}
	}()

	if cfg.Tuning.MinHz > 0 {
		pipeline.SetMinFrequency(cfg.Tuning.MinHz)
	}
	if cfg.Tuning.MaxHz > 0 {
		pipeline.SetMaxFrequency(cfg.Tuning.MaxHz)
	}

	applog.Infof("%s session %s", build.Get(), pipeline.Session())

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := startup(ctx, cfg, pipeline); err != nil {
		return err
	}

	var (
		sender    *udp.Sender
		publisher *udp.Publisher
	)
	if cfg.UDP.Enabled {
		if sender, err = udp.NewSender(cfg.UDP.Target); err != nil {
			return err
		}
		defer sender.Close()
		if publisher, err = udp.NewPublisher(cfg.UDP.Interval, sender, pipeline); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Server.Enabled {
		srv := server.New(cfg.Server.Listen, pipeline, hub)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if publisher != nil {
		publisher.Start()
		g.Go(func() error {
			<-ctx.Done()
			return publisher.Close()
		})
	}

	if cfg.Monitor.Enabled {
		g.Go(func() error {
			// Quitting the monitor ends the program.
			defer stop()
			return tui.Run(ctx, pipeline, cfg.Monitor.Refresh)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	err = g.Wait()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if pipeline.Flags().Recording {
		path, serr := pipeline.StopRecording()
		if serr != nil {
			applog.Errorf("Error saving recording: %v", serr)
		} else {
			applog.Infof("Recording saved to: %s", path)
		}
	}
	return err
}

// startup applies the connect, record and tune options. A failed connect is
// reported but not fatal: the link can be retried through the control API.
func startup(ctx context.Context, cfg *config.Config, p *audio.Pipeline) error {
	if cfg.Link.Connect {
		if err := p.Connect(ctx); err != nil {
			applog.Errorf("Connect failed: %v", err)
		}
	}
	if cfg.Recording.Start {
		if err := p.StartRecording(); err != nil {
			return err
		}
	}
	if cfg.Tuning.Start {
		mode, err := audio.ParseTuningMode(cfg.Tuning.Mode)
		if err != nil {
			return err
		}
		if err := p.StartTuning(mode); err != nil {
			return err
		}
	}
	return nil
}

func connector(cfg *config.Config) link.Connector {
	switch cfg.Link.Kind {
	case config.LinkFile:
		return link.FileConnector{
			Fs:        afero.NewOsFs(),
			Path:      cfg.Link.Path,
			ChunkSize: cfg.Link.BufferSize,
			Interval:  cfg.Link.ReplayInterval,
			Loop:      cfg.Link.Loop,
		}
	case config.LinkTCP:
		return link.TCPConnector{Address: cfg.Link.Address, Timeout: cfg.Link.DialTimeout}
	}
	return nil
}

func openPlayback(cfg *config.Config) (audio.Playback, error) {
	switch cfg.Playback.Backend {
	case config.PlaybackPortAudio:
		pb, err := audio.OpenPortAudioPlayback(audio.PortAudioConfig{
			DeviceID:   cfg.Playback.Device,
			SampleRate: float64(cfg.Link.SampleRate),
			Format:     cfg.SampleFormat(),
			LowLatency: cfg.Playback.LowLatency,
		})
		if err != nil {
			return nil, err
		}
		if pb.SampleRate() != float64(cfg.Link.SampleRate) {
			applog.Warnf("Playback runs at %.0f Hz, link delivers %d Hz", pb.SampleRate(), cfg.Link.SampleRate)
		}
		return pb, nil
	case config.PlaybackStdout:
		return audio.NewWriterPlayback(os.Stdout), nil
	case config.PlaybackDiscard:
		return audio.DiscardPlayback{}, nil
	}
	return nil, fmt.Errorf("unknown playback backend %q", cfg.Playback.Backend)
}

// listDevices handles the one-off device listing command.
func listDevices() (err error) {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, audio.Terminate())
	}()
	return audio.ListDevices(os.Stdout)
}

func inspect(path string) error {
	f, err := afero.NewOsFs().Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := wav.Probe(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Println(info)
	return nil
}
