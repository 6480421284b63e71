// audioosc plays an mp3 or wav file and streams its analysis as OSC
// messages: overall level, bass/mid/high band energy and beat pulses on the
// addresses the controller's OSC server listens on.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"

	"shroomlight/lib/osc"
)

const (
	blockSize     = 2048
	beatThreshold = 1.5
	beatCooldown  = 100 * time.Millisecond
)

func main() {
	host := flag.String("osc-ip", "127.0.0.1", "OSC target IP")
	port := flag.Int("osc-port", 8000, "OSC target port")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <audio file>\n", os.Args[0])
		os.Exit(1)
	}

	stream, format, err := decodeAudio(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	client, err := osc.NewClient(*host, *port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Playing %s, sending OSC to %s:%d\n", flag.Arg(0), *host, *port)

	a := newAnalyzer(stream, float64(format.SampleRate), client)

	done := make(chan struct{})
	speaker.Play(beep.Seq(a, beep.Callback(func() {
		close(done)
	})))
	<-done
	fmt.Println("\nAudio complete.")
}

func decodeAudio(path string) (beep.StreamSeekCloser, beep.Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		stream, format, err := mp3.Decode(file)
		if err != nil {
			file.Close()
			return nil, beep.Format{}, err
		}
		return stream, format, nil
	case ".wav":
		stream, format, err := wav.Decode(file)
		if err != nil {
			file.Close()
			return nil, beep.Format{}, err
		}
		return stream, format, nil
	default:
		file.Close()
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}
}

// analyzer wraps the playback streamer and analyzes samples as they pass
// through. Bands come from one-pole filters at 250Hz and 4kHz rather than an
// FFT; coarse but enough to drive lights.
type analyzer struct {
	src        beep.Streamer
	sampleRate float64
	client     *osc.Client

	lowAlpha  float64
	highAlpha float64
	lowState  float64
	highState float64

	sumSq   float64
	sumBass float64
	sumMid  float64
	sumHigh float64
	count   int

	smoothLevel float64
	smoothBass  float64
	smoothMid   float64
	smoothHigh  float64
	maxLevel    float64

	history  []float64
	lastBeat time.Time
}

func newAnalyzer(src beep.Streamer, sampleRate float64, client *osc.Client) *analyzer {
	return &analyzer{
		src:        src,
		sampleRate: sampleRate,
		client:     client,
		lowAlpha:   filterAlpha(250, sampleRate),
		highAlpha:  filterAlpha(4000, sampleRate),
		maxLevel:   0.001,
	}
}

func filterAlpha(cutoff, sampleRate float64) float64 {
	return 1 - math.Exp(-2*math.Pi*cutoff/sampleRate)
}

func (a *analyzer) Stream(samples [][2]float64) (int, bool) {
	n, ok := a.src.Stream(samples)

	for _, s := range samples[:n] {
		mono := (s[0] + s[1]) / 2

		a.lowState += a.lowAlpha * (mono - a.lowState)
		a.highState += a.highAlpha * (mono - a.highState)

		bass := a.lowState
		high := mono - a.highState
		mid := mono - bass - high

		a.sumSq += mono * mono
		a.sumBass += bass * bass
		a.sumMid += mid * mid
		a.sumHigh += high * high
		a.count++

		if a.count >= blockSize {
			a.flush()
		}
	}
	return n, ok
}

func (a *analyzer) Err() error { return a.src.Err() }

func (a *analyzer) flush() {
	n := float64(a.count)
	rms := math.Sqrt(a.sumSq / n)
	bass := math.Sqrt(a.sumBass / n)
	mid := math.Sqrt(a.sumMid / n)
	high := math.Sqrt(a.sumHigh / n)
	a.sumSq, a.sumBass, a.sumMid, a.sumHigh, a.count = 0, 0, 0, 0, 0

	// Auto-gain against a slowly decaying peak.
	a.maxLevel = math.Max(a.maxLevel*0.9995, rms)
	level := math.Min(rms/(a.maxLevel+0.0001), 1.0)

	maxBand := math.Max(bass, math.Max(mid, math.Max(high, 0.0001)))
	bass = math.Min(bass/maxBand, 1.0)
	mid = math.Min(mid/maxBand, 1.0)
	high = math.Min(high/maxBand, 1.0)

	const smoothing = 0.3
	a.smoothLevel = a.smoothLevel*smoothing + level*(1-smoothing)
	a.smoothBass = a.smoothBass*smoothing + bass*(1-smoothing)
	a.smoothMid = a.smoothMid*smoothing + mid*(1-smoothing)
	a.smoothHigh = a.smoothHigh*smoothing + high*(1-smoothing)

	a.client.Send("/audio/level",
		float32(a.smoothLevel), float32(a.smoothBass),
		float32(a.smoothMid), float32(a.smoothHigh))
	a.client.Send("/audio/bass", float32(a.smoothBass))
	a.client.Send("/audio/mid", float32(a.smoothMid))
	a.client.Send("/audio/high", float32(a.smoothHigh))

	if a.detectBeat(rms) {
		a.client.Send("/audio/beat", float32(1.0))
	}
}

// detectBeat flags energy spikes against a rolling one-second average.
func (a *analyzer) detectBeat(energy float64) bool {
	a.history = append(a.history, energy)
	if len(a.history) > 43 {
		a.history = a.history[1:]
	}
	if len(a.history) < 10 {
		return false
	}

	var sum float64
	for _, e := range a.history[:len(a.history)-1] {
		sum += e
	}
	avg := sum / float64(len(a.history)-1)

	if energy > avg*beatThreshold && time.Since(a.lastBeat) > beatCooldown {
		a.lastBeat = time.Now()
		return true
	}
	return false
}
