package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/januslink/janus/pkg/audio/device"
	"github.com/januslink/janus/pkg/audio/pcm"
	"github.com/januslink/janus/pkg/engine"
	"github.com/januslink/janus/pkg/events"
	"github.com/januslink/janus/pkg/link"
	"github.com/januslink/janus/pkg/speech"
)

var sendFlags = struct {
	linkFlags
	mode      string
	emotion   string
	stream    bool
	ws        string
	noHistory bool
}{}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Capture from the microphone and transmit packets",
	Long: `Capture microphone audio, cut it into utterances, transcribe each
one with the configured ASR command and transmit it over the throttled
link.

With --stream (the default), the voice activity detector opens an
utterance and about half a second of silence closes it. Hold-to-record
is driven over the WebSocket bridge (--ws): setting is_recording buffers
everything until the flag clears.

Requires models.asr in the configuration.`,
	RunE: runSend,
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendFlags.network, "network", "", "link network: tcp or udp")
	f.StringVar(&sendFlags.addr, "addr", "", "peer address")
	f.IntVar(&sendFlags.bitrate, "bitrate", 0, "link rate in bits per second")
	f.StringVar(&sendFlags.mode, "mode", "semantic", "transmission mode: semantic, text, morse")
	f.StringVar(&sendFlags.emotion, "emotion", "auto", "emotion override: auto, relaxed, panicked")
	f.BoolVar(&sendFlags.stream, "stream", true, "VAD-gated continuous capture")
	f.StringVar(&sendFlags.ws, "ws", "", "serve the control bridge on this address")
	f.BoolVar(&sendFlags.noHistory, "no-history", false, "do not log transcripts")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	if len(cfg.Models.ASR) == 0 {
		return fmt.Errorf("no ASR command configured; set models.asr (see 'janus config')")
	}

	store, err := newStore(sendFlags.mode, sendFlags.emotion, sendFlags.stream)
	if err != nil {
		return err
	}
	hub := events.NewHub(0)

	hist, err := openHistory(cfg, sendFlags.noHistory)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	network, addr, bps := sendFlags.resolve(cfg)
	sender, err := link.Dial(ctx, network, addr, bps)
	if err != nil {
		return err
	}
	defer sender.Close()

	in, err := device.OpenInput(pcm.L16Mono48K, cfg.Audio.ChunkSamples)
	if err != nil {
		return err
	}
	defer in.Close()

	vad, err := newVAD(cfg, in.Format())
	if err != nil {
		return err
	}

	eng, err := engine.NewSender(engine.SenderOptions{
		Source:      in,
		Link:        sender,
		Store:       store,
		VAD:         vad,
		Transcriber: &speech.ExecTranscriber{Command: cfg.Models.ASR},
		Prosody:     &speech.Prosody{},
		Hub:         hub,
		History:     hist,
	})
	if err != nil {
		return err
	}

	cancelPrint := printEvents(hub, "TX", bps)
	defer cancelPrint()
	ws := sendFlags.ws
	if ws == "" {
		ws = cfg.WSAddr
	}
	if err := startBridge(ctx, store, hub, ws); err != nil {
		return err
	}

	state := store.Get()
	fmt.Printf("%s %s\n",
		styles.Title.Render(fmt.Sprintf("janus send → %s://%s at %d bps", network, addr, bps)),
		styles.StateLine(state.Mode, state.Streaming, state.Recording, state.Emotion),
	)

	// Closing the input unblocks the capture read once the signal
	// arrives.
	go func() {
		<-ctx.Done()
		in.Close()
	}()
	return eng.Run(ctx)
}
