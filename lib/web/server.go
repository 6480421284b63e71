// Package web exposes the REST control surface: status, scene binding,
// blackout, modulator control, configuration editing and fixture discovery.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"time"

	xdraw "golang.org/x/image/draw"

	"shroomlight/lib/bus"
	"shroomlight/lib/config"
	"shroomlight/lib/fixture"
	"shroomlight/lib/input"
	"shroomlight/lib/modulator"
	"shroomlight/lib/render"
	"shroomlight/lib/scene"
)

type Server struct {
	Addr string

	Bus       *bus.Bus
	Scenes    *scene.Manager
	Modulator *modulator.Modulator
	Config    *config.Manager
	Inputs    *input.Set
	Loop      *render.Loop

	srv *http.Server
}

func New(addr string, b *bus.Bus, scenes *scene.Manager, mod *modulator.Modulator, cfg *config.Manager, inputs *input.Set, loop *render.Loop) *Server {
	return &Server{
		Addr:      addr,
		Bus:       b,
		Scenes:    scenes,
		Modulator: mod,
		Config:    cfg,
		Inputs:    inputs,
		Loop:      loop,
	}
}

func (s *Server) Start() error {
	s.srv = &http.Server{Addr: s.Addr, Handler: s.handler()}

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("web: serve: %v", err)
		}
	}()
	log.Printf("web: listening on %s", s.Addr)
	return nil
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.getStatus)
	mux.HandleFunc("GET /api/scenes", s.getScenes)
	mux.HandleFunc("GET /api/scenes/{name}/params", s.getSceneParams)
	mux.HandleFunc("PUT /api/scenes/params", s.putSceneParams)
	mux.HandleFunc("GET /api/mushrooms", s.getMushrooms)
	mux.HandleFunc("POST /api/mushrooms/{id}/scene", s.postMushroomScene)
	mux.HandleFunc("POST /api/mushrooms/{id}/flash", s.postMushroomFlash)
	mux.HandleFunc("POST /api/blackout", s.postBlackout)
	mux.HandleFunc("GET /api/modulator", s.getModulator)
	mux.HandleFunc("POST /api/modulator/lfo", s.postLFO)
	mux.HandleFunc("POST /api/modulator/trigger", s.postTrigger)
	mux.HandleFunc("POST /api/gesture", s.postGesture)
	mux.HandleFunc("GET /api/config", s.getConfig)
	mux.HandleFunc("PUT /api/config", s.putConfig)
	mux.HandleFunc("POST /api/config/save", s.postConfigSave)
	mux.HandleFunc("POST /api/config/reload", s.postConfigReload)
	mux.HandleFunc("POST /api/fixtures/flash", s.postFlash)
	mux.HandleFunc("GET /api/inputs", s.getInputs)
	mux.HandleFunc("GET /preview.png", s.getPreview)

	return mux
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"blackout": s.Scenes.Blackout(),
		"selected": s.Scenes.Selected(),
		"scenes":   s.Scenes.SceneNames(),
		"inputs":   s.Inputs.Status(),
	})
}

func (s *Server) getScenes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scene.Names)
}

func (s *Server) getSceneParams(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("name") {
	case scene.NamePastelFade:
		writeJSON(w, http.StatusOK, s.Config.Pastel())
	case scene.NameAudioPulse:
		writeJSON(w, http.StatusOK, s.Config.AudioPulse())
	case scene.NameBioGlow:
		writeJSON(w, http.StatusOK, s.Config.BioGlow())
	default:
		writeError(w, http.StatusNotFound, "unknown scene %q", r.PathValue("name"))
	}
}

func (s *Server) putSceneParams(w http.ResponseWriter, r *http.Request) {
	params := s.Config.Config().Scenes
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "decode: %v", err)
		return
	}
	s.Config.SetSceneParams(params)
	writeJSON(w, http.StatusOK, params)
}

func (s *Server) getMushrooms(w http.ResponseWriter, r *http.Request) {
	type fixtureInfo struct {
		Name     string `json:"name"`
		Address  int    `json:"address"`
		Channels int    `json:"channels"`
		Color    [3]int `json:"color"`
	}
	type mushroomInfo struct {
		ID       int           `json:"id"`
		Name     string        `json:"name"`
		Scene    string        `json:"scene"`
		Fixtures []fixtureInfo `json:"fixtures"`
	}

	names := s.Scenes.SceneNames()
	var out []mushroomInfo
	for _, m := range s.Scenes.Mushrooms() {
		info := mushroomInfo{ID: m.ID, Name: m.Name, Scene: names[m.ID]}
		for _, f := range m.Fixtures {
			c := f.Color()
			info.Fixtures = append(info.Fixtures, fixtureInfo{
				Name:     f.Name,
				Address:  f.Address,
				Channels: f.Channels,
				Color:    [3]int{int(c.R), int(c.G), int(c.B)},
			})
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) postMushroomScene(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad mushroom id")
		return
	}
	var body struct {
		Scene string `json:"scene"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "decode: %v", err)
		return
	}
	if err := s.Scenes.SetScene(id, body.Scene); err != nil {
		writeError(w, http.StatusNotFound, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"scene": body.Scene})
}

func (s *Server) postMushroomFlash(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad mushroom id")
		return
	}
	for _, m := range s.Scenes.Mushrooms() {
		if m.ID != id {
			continue
		}
		for _, f := range m.Fixtures {
			s.Loop.AddFlash(f.Address, f.Channels, fixture.New(255, 255, 255), time.Second)
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "flashing", "fixtures": len(m.Fixtures)})
		return
	}
	writeError(w, http.StatusNotFound, "unknown mushroom %d", id)
}

func (s *Server) postBlackout(w http.ResponseWriter, r *http.Request) {
	next := !s.Scenes.Blackout()
	s.Scenes.SetBlackout(next)
	writeJSON(w, http.StatusOK, map[string]bool{"blackout": next})
}

func (s *Server) getModulator(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Modulator.State())
}

func (s *Server) postLFO(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Waveform  *string  `json:"waveform"`
		Target    *string  `json:"target"`
		Frequency *float64 `json:"frequency"`
		Depth     *float64 `json:"depth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "decode: %v", err)
		return
	}

	var waveform *modulator.Waveform
	if body.Waveform != nil {
		v, ok := modulator.ParseWaveform(*body.Waveform)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown waveform %q", *body.Waveform)
			return
		}
		waveform = &v
	}
	var target *modulator.Target
	if body.Target != nil {
		v, ok := modulator.ParseTarget(*body.Target)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown target %q", *body.Target)
			return
		}
		target = &v
	}

	s.Modulator.SetLFO(waveform, target, body.Frequency, body.Depth)
	writeJSON(w, http.StatusOK, s.Modulator.State())
}

func (s *Server) postTrigger(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind      string  `json:"kind"`
		Intensity float64 `json:"intensity"`
		DecayRate float64 `json:"decay_rate"`
		Shift     float64 `json:"shift"`
		Color     [3]int  `json:"color"`
	}
	body.Intensity = 1.0
	body.DecayRate = 3.0
	body.Color = [3]int{255, 255, 255}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "decode: %v", err)
		return
	}
	if body.Kind != modulator.EffectFlash && body.Kind != modulator.EffectHueShift {
		writeError(w, http.StatusBadRequest, "unknown effect %q", body.Kind)
		return
	}

	s.Modulator.Trigger(modulator.OneShot{
		Kind:      body.Kind,
		Intensity: body.Intensity,
		DecayRate: body.DecayRate,
		Shift:     body.Shift,
		Color:     fixture.New(body.Color[0], body.Color[1], body.Color[2]),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "triggered"})
}

// postGesture injects a hand-tracking gesture, for senders without a native
// bus connection and for bench testing.
func (s *Server) postGesture(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Gesture  string  `json:"gesture"`
		Strength float64 `json:"strength"`
	}{
		Strength: 1.0,
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "decode: %v", err)
		return
	}
	g, ok := bus.ParseGesture(body.Gesture)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown gesture %q", body.Gesture)
		return
	}

	if !s.Bus.TryPublish(bus.GestureEvent{Gesture: g, Strength: body.Strength}) {
		writeError(w, http.StatusServiceUnavailable, "bus full")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gesture": body.Gesture, "strength": body.Strength})
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Config.Config())
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config.Config()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "decode: %v", err)
		return
	}
	s.Config.Update(cfg)
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"note":   "restart required for network and patch changes",
	})
}

func (s *Server) postConfigSave(w http.ResponseWriter, r *http.Request) {
	if err := s.Config.Save(); err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) postConfigReload(w http.ResponseWriter, r *http.Request) {
	s.Config.Reload()
	writeJSON(w, http.StatusOK, s.Config.Config())
}

func (s *Server) postFlash(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Address  int     `json:"address"`
		Channels int     `json:"channels"`
		Color    [3]int  `json:"color"`
		Duration float64 `json:"duration"`
	}{
		Channels: 3,
		Color:    [3]int{255, 255, 255},
		Duration: 1.0,
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "decode: %v", err)
		return
	}
	if body.Address < 1 || body.Address > 512 {
		writeError(w, http.StatusBadRequest, "address out of range")
		return
	}

	s.Loop.AddFlash(body.Address, body.Channels,
		fixture.New(body.Color[0], body.Color[1], body.Color[2]),
		time.Duration(body.Duration*float64(time.Second)))
	writeJSON(w, http.StatusOK, map[string]any{"status": "flashing", "address": body.Address})
}

func (s *Server) getInputs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Inputs.Status())
}

// getPreview renders the current fixture colors as a PNG, one column per
// mushroom and one row per fixture, scaled up for visibility.
func (s *Server) getPreview(w http.ResponseWriter, r *http.Request) {
	mushrooms := s.Scenes.Mushrooms()
	if len(mushrooms) == 0 {
		writeError(w, http.StatusNotFound, "no mushrooms")
		return
	}

	rows := 0
	for _, m := range mushrooms {
		if len(m.Fixtures) > rows {
			rows = len(m.Fixtures)
		}
	}
	if rows == 0 {
		rows = 1
	}

	small := image.NewRGBA(image.Rect(0, 0, len(mushrooms), rows))
	for x, m := range mushrooms {
		for y, f := range m.Fixtures {
			c := f.Color().Scaled(f.Intensity())
			small.SetRGBA(x, y, c.RGBA8())
		}
	}

	const cell = 64
	big := image.NewRGBA(image.Rect(0, 0, len(mushrooms)*cell, rows*cell))
	xdraw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), xdraw.Src, nil)

	w.Header().Set("Content-Type", "image/png")
	png.Encode(w, big)
}
