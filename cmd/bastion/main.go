// Command bastion is the process entrypoint: it loads configuration, calls
// engine.Init, runs the tick loop at 20Hz following the teacher's
// world.ticker.tickLoop shape, and calls Teardown on shutdown.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/voxelforge/bastion/internal/config"
	"github.com/voxelforge/bastion/internal/engine"
)

const tickInterval = time.Second / 20

func main() {
	configPath := flag.String("config", "bastion.toml", "path to the TOML configuration file")
	savePath := flag.String("save", "world.ldb", "path to the world save directory")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	eng, err := engine.Init(*savePath, cfg, log)
	if err != nil {
		log.Error("init engine", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := eng.Teardown(); err != nil {
			log.Error("teardown", "error", err)
		}
	}()

	closing := make(chan os.Signal, 2)
	signal.Notify(closing, syscall.SIGINT, syscall.SIGTERM)

	log.Info("bastion: engine started", "seed", cfg.Seed, "save", *savePath)
	tickLoop(eng, log, closing)
	log.Info("bastion: shutting down")
}

// tickLoop runs the main-thread step at a fixed 20Hz cadence, mirroring the
// teacher's ticker.tickLoop: a time.Ticker channel drives the step, and a
// close signal on the second channel stops the loop cleanly. There is no
// viewer/camera in this headless process, so the pipeline's frustum and
// distance culling see a stationary viewer at the world origin — a
// networked front end would instead track each connected client.
func tickLoop(eng *engine.Engine, log *slog.Logger, closing <-chan os.Signal) {
	tc := time.NewTicker(tickInterval)
	defer tc.Stop()

	lastTick := time.Now()
	viewerPos := mgl64.Vec3{0, 0, 0}

	for {
		select {
		case now := <-tc.C:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now

			res := eng.Tick(dt, viewerPos, nil)
			if len(res.Conversions) > 0 || len(res.Despawned) > 0 {
				log.Info("bastion: tick",
					"visible_sections", res.Pipeline.Visible,
					"unstable", len(res.Unstable),
					"conversions", len(res.Conversions),
					"despawned", len(res.Despawned),
				)
			}
		case <-closing:
			return
		}
	}
}
