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

var recvFlags = struct {
	linkFlags
	emotion   string
	ws        string
	noHistory bool
}{}

var recvCmd = &cobra.Command{
	Use:   "recv",
	Short: "Receive packets and play them back",
	Long: `Listen on the link, decode incoming packets and speak them through
the default output device. Semantic and text packets are rendered with
the configured TTS command; morse packets are keyed as 800Hz tones with
no model involved.

Without models.tts only morse packets can be played.`,
	RunE: runRecv,
}

func init() {
	f := recvCmd.Flags()
	f.StringVar(&recvFlags.network, "network", "", "link network: tcp or udp")
	f.StringVar(&recvFlags.addr, "addr", "", "bind address")
	f.IntVar(&recvFlags.bitrate, "bitrate", 0, "link rate in bits per second")
	f.StringVar(&recvFlags.emotion, "emotion", "auto", "local emotion override: auto, relaxed, panicked")
	f.StringVar(&recvFlags.ws, "ws", "", "serve the control bridge on this address")
	f.BoolVar(&recvFlags.noHistory, "no-history", false, "do not log transcripts")
	rootCmd.AddCommand(recvCmd)
}

func runRecv(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	store, err := newStore("semantic", recvFlags.emotion, false)
	if err != nil {
		return err
	}
	hub := events.NewHub(0)

	hist, err := openHistory(cfg, recvFlags.noHistory)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	network, addr, bps := recvFlags.resolve(cfg)
	receiver, err := link.Listen(network, addr)
	if err != nil {
		return err
	}
	defer receiver.Close()

	out, err := device.OpenOutput(pcm.L16Mono16K, cfg.Audio.ChunkSamples)
	if err != nil {
		return err
	}
	defer out.Close()

	var synth speech.Synthesizer
	if len(cfg.Models.TTS) > 0 {
		synth = &speech.ExecSynthesizer{Command: cfg.Models.TTS}
	}

	eng, err := engine.NewReceiver(engine.ReceiverOptions{
		Link:    receiver,
		Synth:   synth,
		Out:     out,
		Format:  pcm.L16Mono16K,
		Store:   store,
		Hub:     hub,
		History: hist,
	})
	if err != nil {
		return err
	}

	cancelPrint := printEvents(hub, "RX", bps)
	defer cancelPrint()
	ws := recvFlags.ws
	if ws == "" {
		ws = cfg.WSAddr
	}
	if err := startBridge(ctx, store, hub, ws); err != nil {
		return err
	}

	fmt.Println(styles.Title.Render(
		fmt.Sprintf("janus recv ← %s://%s", network, receiver.Addr())))

	// Closing the link unblocks the pending receive once the signal
	// arrives.
	go func() {
		<-ctx.Done()
		receiver.Close()
	}()
	return eng.Run(ctx)
}
