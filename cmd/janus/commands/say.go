package commands

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/januslink/janus/pkg/events"
	"github.com/januslink/janus/pkg/history"
	"github.com/januslink/janus/pkg/janus"
	"github.com/januslink/janus/pkg/link"
)

var sayFlags = struct {
	linkFlags
	mode      string
	emotion   string
	noHistory bool
}{}

var sayCmd = &cobra.Command{
	Use:   "say [text...]",
	Short: "Type text and transmit packets",
	Long: `Transmit text as packets without a microphone or ASR model: the
arguments form one utterance, or with no arguments each stdin line is
one utterance. Useful for testing a link and for stations without audio
hardware.`,
	RunE: runSay,
}

func init() {
	f := sayCmd.Flags()
	f.StringVar(&sayFlags.network, "network", "", "link network: tcp or udp")
	f.StringVar(&sayFlags.addr, "addr", "", "peer address")
	f.IntVar(&sayFlags.bitrate, "bitrate", 0, "link rate in bits per second")
	f.StringVar(&sayFlags.mode, "mode", "semantic", "transmission mode: semantic, text, morse")
	f.StringVar(&sayFlags.emotion, "emotion", "auto", "emotion override: auto, relaxed, panicked")
	f.BoolVar(&sayFlags.noHistory, "no-history", false, "do not log transcripts")
	rootCmd.AddCommand(sayCmd)
}

func runSay(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	mode, err := parseMode(sayFlags.mode)
	if err != nil {
		return err
	}
	emotion, err := parseEmotion(sayFlags.emotion)
	if err != nil {
		return err
	}

	hist, err := openHistory(cfg, sayFlags.noHistory)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	network, addr, bps := sayFlags.resolve(cfg)
	sender, err := link.Dial(ctx, network, addr, bps)
	if err != nil {
		return err
	}
	defer sender.Close()

	hub := events.NewHub(0)
	cancelPrint := printEvents(hub, "TX", bps)
	defer cancelPrint()

	transmit := func(text string) error {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		now := time.Now().UnixMilli()
		payload, err := janus.Encode(&janus.Packet{
			Text:      text,
			Mode:      mode,
			Emotion:   emotion,
			Timestamp: now,
		})
		if err != nil {
			return err
		}
		wire, err := sender.Send(ctx, payload)
		if err != nil {
			return err
		}
		hub.PublishTranscript(events.NewTranscript(text, nil))
		hub.PublishPacketSummary(events.NewPacketSummary(wire, mode))
		if hist != nil {
			if err := hist.Append(history.Record{
				Direction: history.Sent,
				Text:      text,
				Mode:      mode,
				AtMs:      now,
			}); err != nil {
				fmt.Fprintln(os.Stderr, styles.ErrorLine(events.NewNotice(err.Error())))
			}
		}
		return nil
	}

	if len(args) > 0 {
		return transmit(strings.Join(args, " "))
	}

	fmt.Println(styles.Meta.Render("one line per utterance; ^D to stop"))
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		if err := transmit(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}
