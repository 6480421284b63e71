// padtest prints Launchpad pad events and lights each pad while held, for
// checking the grid mapping before a show.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"shroomlight/lib/bus"
	"shroomlight/lib/input"
)

func main() {
	defer midi.CloseDriver()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.New()
	go b.Run(ctx)

	lp := input.NewLaunchpad(b)

	b.Subscribe(bus.PadPress, func(e bus.Event) {
		ev := e.(bus.PadEvent)
		fmt.Println(ev)
		if ev.Side < 0 {
			color := input.PadOff
			if ev.Pressed {
				color = input.PadGreenFull
			}
			lp.SetPad(ev.X, ev.Y, color)
		}
	})
	b.Subscribe(bus.DeviceStatus, func(e bus.Event) {
		ev := e.(bus.DeviceStatusEvent)
		if ev.Connected {
			fmt.Println("Launchpad connected")
		} else {
			fmt.Println("Launchpad disconnected")
		}
	})

	go lp.Run(ctx)

	fmt.Println("Waiting for Launchpad, press pads to test. Ctrl+C to exit.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println()
}
