package config

import "encoding/json"

// FixtureConfig patches one RGB head. Address is the 1-indexed DMX start
// channel; Channels is 3 (RGB) or 4 (RGBW).
type FixtureConfig struct {
	Name     string `yaml:"name" json:"name"`
	Address  int    `yaml:"address" json:"address"`
	Channels int    `yaml:"channels" json:"channels"`
}

type MushroomConfig struct {
	Name     string          `yaml:"name" json:"name"`
	Fixtures []FixtureConfig `yaml:"fixtures" json:"fixtures"`
}

// HSV is a [hue, saturation, value] anchor as written in config files.
type HSV struct {
	H float64
	S float64
	V float64
}

func (c *HSV) UnmarshalYAML(unmarshal func(any) error) error {
	var vals [3]float64
	if err := unmarshal(&vals); err != nil {
		return err
	}
	c.H, c.S, c.V = vals[0], vals[1], vals[2]
	return nil
}

func (c HSV) MarshalYAML() (any, error) {
	return [3]float64{c.H, c.S, c.V}, nil
}

// JSON uses the same [h, s, v] shape as YAML so the web API matches the
// config file.
func (c *HSV) UnmarshalJSON(data []byte) error {
	var vals [3]float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return err
	}
	c.H, c.S, c.V = vals[0], vals[1], vals[2]
	return nil
}

func (c HSV) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{c.H, c.S, c.V})
}

type PastelParams struct {
	CycleDuration float64 `yaml:"cycle_duration" json:"cycle_duration"` // seconds per full cycle
	PhaseOffset   float64 `yaml:"phase_offset" json:"phase_offset"`     // fraction of cycle between groups
}

type AudioPulseParams struct {
	BaseHue   float64 `yaml:"base_hue" json:"base_hue"`
	DecayRate float64 `yaml:"decay_rate" json:"decay_rate"` // beat intensity units per second
}

type BioGlowParams struct {
	LowColor  HSV `yaml:"low_color" json:"low_color"`
	HighColor HSV `yaml:"high_color" json:"high_color"`
}

type SceneParams struct {
	Pastel     PastelParams     `yaml:"pastel_fade" json:"pastel_fade"`
	AudioPulse AudioPulseParams `yaml:"audio_pulse" json:"audio_pulse"`
	BioGlow    BioGlowParams    `yaml:"bio_glow" json:"bio_glow"`
}

type Config struct {
	ArtNetIP       string `yaml:"artnet_ip" json:"artnet_ip"`
	ArtNetUniverse int    `yaml:"artnet_universe" json:"artnet_universe"`
	Output         string `yaml:"output" json:"output"`           // artnet, dmx_pro, null, or "+"-joined list
	SerialPort     string `yaml:"serial_port" json:"serial_port"` // for the serial transports

	DMXFPS        int     `yaml:"dmx_fps" json:"dmx_fps"`
	MaxFrameDelta float64 `yaml:"max_frame_delta" json:"max_frame_delta"` // seconds; clamp on render dt
	IdleTimeout   float64 `yaml:"idle_timeout" json:"idle_timeout"`       // seconds
	OSCPort       int     `yaml:"osc_port" json:"osc_port"`
	WebAddr       string  `yaml:"web_addr" json:"web_addr"`

	Mushrooms []MushroomConfig `yaml:"mushrooms" json:"mushrooms"`
	Scenes    SceneParams      `yaml:"scenes" json:"scenes"`
}

// Default returns the stock four-mushroom rig with three RGB heads each.
func Default() Config {
	cfg := Config{
		ArtNetIP:       "255.255.255.255",
		ArtNetUniverse: 0,
		Output:         "artnet",
		DMXFPS:         40,
		MaxFrameDelta:  0.25,
		IdleTimeout:    30,
		OSCPort:        8000,
		WebAddr:        ":8080",
		Scenes: SceneParams{
			Pastel:     PastelParams{CycleDuration: 30, PhaseOffset: 0.25},
			AudioPulse: AudioPulseParams{BaseHue: 280, DecayRate: 3},
			BioGlow: BioGlowParams{
				LowColor:  HSV{120, 0.6, 0.4},
				HighColor: HSV{60, 0.8, 0.9},
			},
		},
	}
	for i := 0; i < 4; i++ {
		base := i*9 + 1
		cfg.Mushrooms = append(cfg.Mushrooms, MushroomConfig{
			Name: "Mushroom " + string(rune('1'+i)),
			Fixtures: []FixtureConfig{
				{Name: "Cap", Address: base, Channels: 3},
				{Name: "Stem", Address: base + 3, Channels: 3},
				{Name: "Spot", Address: base + 6, Channels: 3},
			},
		})
	}
	return cfg
}

// normalize fills zero-valued fields with defaults so partial config files
// work out of the box.
func (c *Config) normalize() {
	def := Default()
	if c.ArtNetIP == "" {
		c.ArtNetIP = def.ArtNetIP
	}
	if c.Output == "" {
		c.Output = def.Output
	}
	if c.DMXFPS <= 0 {
		c.DMXFPS = def.DMXFPS
	}
	if c.MaxFrameDelta <= 0 {
		c.MaxFrameDelta = def.MaxFrameDelta
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.OSCPort <= 0 {
		c.OSCPort = def.OSCPort
	}
	if c.WebAddr == "" {
		c.WebAddr = def.WebAddr
	}
	if c.Scenes.Pastel.CycleDuration <= 0 {
		c.Scenes.Pastel = def.Scenes.Pastel
	}
	if c.Scenes.AudioPulse.DecayRate <= 0 {
		c.Scenes.AudioPulse = def.Scenes.AudioPulse
	}
	if c.Scenes.BioGlow.LowColor.V <= 0 && c.Scenes.BioGlow.HighColor.V <= 0 {
		c.Scenes.BioGlow = def.Scenes.BioGlow
	}
	for i := range c.Mushrooms {
		for j := range c.Mushrooms[i].Fixtures {
			if c.Mushrooms[i].Fixtures[j].Channels == 0 {
				c.Mushrooms[i].Fixtures[j].Channels = 3
			}
		}
	}
	if len(c.Mushrooms) == 0 {
		c.Mushrooms = def.Mushrooms
	}
}
