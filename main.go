package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"shroomlight/lib/bus"
	"shroomlight/lib/config"
	"shroomlight/lib/dmx"
	"shroomlight/lib/fixture"
	"shroomlight/lib/input"
	"shroomlight/lib/modulator"
	"shroomlight/lib/osc"
	"shroomlight/lib/render"
	"shroomlight/lib/scene"
	"shroomlight/lib/web"
)

func main() {
	defer midi.CloseDriver()

	configPath := "shroomlight.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfgMgr := config.NewManager(configPath)
	cfg := cfgMgr.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.New()
	go b.Run(ctx)

	var mushrooms []*fixture.Mushroom
	for i, mc := range cfg.Mushrooms {
		var fixtures []*fixture.Fixture
		for _, fc := range mc.Fixtures {
			fixtures = append(fixtures, fixture.NewFixture(fc.Name, fc.Address, fc.Channels))
		}
		mushrooms = append(mushrooms, fixture.NewMushroom(i, mc.Name, fixtures))
	}

	display := &scene.Display{}
	scenes := scene.NewManager(mushrooms, cfgMgr, display, b)
	mod := modulator.New(b)

	out := openOutput(cfg)
	defer out.Stop()

	loop := render.New(scenes, mod, out, cfg.DMXFPS, cfg.MaxFrameDelta)
	go loop.Run(ctx)

	oscServer := osc.NewServer(cfg.OSCPort, b)
	if err := oscServer.Start(); err != nil {
		log.Printf("main: %v", err)
	} else {
		go oscServer.Run(ctx)
	}

	inputs := input.NewSet(b, []string{"ds4", "launchpad"})
	inputs.Start(ctx)

	idle := input.NewIdle(b, time.Duration(cfg.IdleTimeout*float64(time.Second)))
	go idle.Run(ctx)

	if lp, ok := inputs.Get("launchpad").(*input.Launchpad); ok {
		go paintLaunchpad(ctx, lp, scenes)
	}

	server := web.New(cfg.WebAddr, b, scenes, mod, cfgMgr, inputs, loop)
	server.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Printf("main: shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	server.Stop(shutdownCtx)

	// Leave the rig dark rather than frozen on the last frame.
	if err := out.Blackout(); err != nil {
		log.Printf("main: final blackout: %v", err)
	}
}

// openOutput builds the configured DMX transport. A "+"-joined list (e.g.
// "artnet+dmx_pro") fans frames out to every named transport. Transport
// failures are not fatal; the pipeline keeps running against a null sink so
// the control surfaces stay usable.
func openOutput(cfg config.Config) dmx.Output {
	var outs []dmx.Output
	for _, name := range strings.Split(cfg.Output, "+") {
		switch strings.TrimSpace(name) {
		case "artnet":
			outs = append(outs, dmx.NewArtNet(cfg.ArtNetIP, uint16(cfg.ArtNetUniverse)))
		case "dmx_pro":
			outs = append(outs, dmx.NewPro(cfg.SerialPort))
		case "null":
			outs = append(outs, &dmx.Null{})
		default:
			log.Printf("main: unknown output %q", name)
		}
	}

	var out dmx.Output
	switch len(outs) {
	case 0:
		log.Printf("main: no usable output configured, discarding frames")
		return &dmx.Null{}
	case 1:
		out = outs[0]
	default:
		out = &dmx.Multi{Outputs: outs}
	}

	if err := out.Start(); err != nil {
		log.Printf("main: output %s: %v, discarding frames", cfg.Output, err)
		return &dmx.Null{}
	}
	log.Printf("main: output %s up", cfg.Output)
	return out
}

// paintLaunchpad refreshes the scene grid LEDs a few times a second.
func paintLaunchpad(ctx context.Context, lp *input.Launchpad, scenes *scene.Manager) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lp.ShowState(scenes.SceneNames(), scene.Names, scenes.Blackout())
		}
	}
}
