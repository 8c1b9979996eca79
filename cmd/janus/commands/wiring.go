package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/januslink/janus/cmd/janus/internal/config"
	"github.com/januslink/janus/pkg/audio/pcm"
	"github.com/januslink/janus/pkg/control"
	"github.com/januslink/janus/pkg/events"
	"github.com/januslink/janus/pkg/history"
	"github.com/januslink/janus/pkg/janus"
	"github.com/januslink/janus/pkg/speech"
	"github.com/januslink/janus/pkg/wsbridge"
)

// linkFlags are the per-command overrides of the configured link.
type linkFlags struct {
	network string
	addr    string
	bitrate int
}

func (f *linkFlags) resolve(cfg *config.Config) (network, addr string, bps int) {
	network, addr, bps = cfg.Link.Network, cfg.Link.Addr, cfg.Link.BitsPerSecond
	if f.network != "" {
		network = f.network
	}
	if f.addr != "" {
		addr = f.addr
	}
	if f.bitrate > 0 {
		bps = f.bitrate
	}
	return network, addr, bps
}

// parseMode maps the --mode flag value onto a transmission mode.
func parseMode(s string) (janus.Mode, error) {
	switch s {
	case "", "semantic":
		return janus.ModeSemantic, nil
	case "text", "text_only":
		return janus.ModeTextOnly, nil
	case "morse":
		return janus.ModeMorse, nil
	}
	return 0, fmt.Errorf("unknown mode %q (semantic, text, morse)", s)
}

// parseEmotion maps the --emotion flag value onto an override.
func parseEmotion(s string) (janus.Emotion, error) {
	switch s {
	case "", "auto":
		return janus.EmotionAuto, nil
	case "relaxed":
		return janus.EmotionRelaxed, nil
	case "panicked":
		return janus.EmotionPanicked, nil
	}
	return janus.EmotionAuto, fmt.Errorf("unknown emotion %q (auto, relaxed, panicked)", s)
}

// newStore builds the control store from the mode and emotion flags.
func newStore(mode, emotion string, streaming bool) (*control.Store, error) {
	m, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	e, err := parseEmotion(emotion)
	if err != nil {
		return nil, err
	}
	store := control.NewStore()
	store.Apply(control.Update{Mode: &m, Emotion: &e, Streaming: &streaming})
	return store, nil
}

// newVAD builds the configured voice activity detector.
func newVAD(cfg *config.Config, format pcm.Format) (speech.VAD, error) {
	switch cfg.VAD.Backend {
	case "", "rms":
		return &speech.RMSVAD{}, nil
	case "webrtc":
		return speech.NewWebRTCVAD(format, cfg.VAD.Mode)
	}
	return nil, fmt.Errorf("unknown vad backend %q (rms, webrtc)", cfg.VAD.Backend)
}

// openHistory opens the transcript log when a directory is configured.
func openHistory(cfg *config.Config, disabled bool) (*history.Log, error) {
	if disabled || cfg.HistoryDir == "" {
		return nil, nil
	}
	return history.Open(history.Options{Dir: cfg.HistoryDir})
}

// printEvents prints hub telemetry until the subscription is canceled.
// It returns the cancel function.
func printEvents(hub *events.Hub, label string, bps int) func() {
	ch, cancel := hub.Subscribe()
	go func() {
		for ev := range ch {
			if line := styles.EventLine(label, ev, bps); line != "" {
				fmt.Fprintln(os.Stdout, line)
			}
		}
	}()
	return cancel
}

// startBridge serves the WebSocket control bridge when an address is
// configured, via flag or config file.
func startBridge(ctx context.Context, store *control.Store, hub *events.Hub, addr string) error {
	if addr == "" {
		return nil
	}
	b, err := wsbridge.New(wsbridge.Options{Store: store, Hub: hub})
	if err != nil {
		return err
	}
	go func() {
		if err := b.ListenAndServe(ctx, addr); err != nil {
			fmt.Fprintln(os.Stderr, styles.ErrorLine(events.NewNotice(err.Error())))
		}
	}()
	fmt.Println(styles.Meta.Render("control bridge on ws://" + addr + "/ws"))
	return nil
}
