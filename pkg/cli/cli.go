// Package cli renders Janus telemetry for terminal display.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/januslink/janus/pkg/events"
	"github.com/januslink/janus/pkg/janus"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // accent color
	Dim     lipgloss.Color // metadata and help text
	Error   lipgloss.Color // failures
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Error:   lipgloss.Color("#ff5f5f"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Meta  lipgloss.Style
	Error lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Meta:  lipgloss.NewStyle().Foreground(t.Dim),
		Error: lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// Airtime is how long a frame of the given size occupies the link at
// the given bitrate.
func Airtime(bytes, bitsPerSecond int) time.Duration {
	if bitsPerSecond <= 0 || bytes <= 0 {
		return 0
	}
	return time.Duration(bytes) * 8 * time.Second / time.Duration(bitsPerSecond)
}

// FormatDuration formats a duration for display: milliseconds below one
// second, otherwise seconds or minutes with one decimal.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	secs := float64(ms) / 1000
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	return fmt.Sprintf("%dm%.1fs", mins, secs-float64(mins*60))
}

// TranscriptLine renders one transcript event. The label is the
// direction marker, typically "TX" or "RX".
func (s Styles) TranscriptLine(label string, t *events.Transcript) string {
	var b strings.Builder
	b.WriteString(s.Label.Render(label))
	b.WriteString(" ")
	b.WriteString(t.Text)
	var tags []string
	if t.AvgEnergy > 0 {
		tags = append(tags, fmt.Sprintf("energy %.2f", t.AvgEnergy))
	}
	if t.AvgPitchHz > 0 {
		tags = append(tags, fmt.Sprintf("pitch %.0fHz", t.AvgPitchHz))
	}
	if t.EndMs > t.StartMs {
		tags = append(tags, FormatDuration(time.Duration(t.EndMs-t.StartMs)*time.Millisecond))
	}
	if len(tags) > 0 {
		b.WriteString(" ")
		b.WriteString(s.Meta.Render("(" + strings.Join(tags, ", ") + ")"))
	}
	return b.String()
}

// PacketLine renders one packet summary with its airtime at the given
// link rate.
func (s Styles) PacketLine(p *events.PacketSummary, bitsPerSecond int) string {
	meta := fmt.Sprintf("%d B, %s, on air %s",
		p.Bytes, p.Mode, FormatDuration(Airtime(p.Bytes, bitsPerSecond)))
	return s.Meta.Render("   " + meta)
}

// ErrorLine renders one error notice.
func (s Styles) ErrorLine(n *events.Notice) string {
	return s.Error.Render("!! ") + n.Message
}

// EventLine renders any hub event; the label marks transcript
// direction. Unknown event types render as empty strings.
func (s Styles) EventLine(label string, ev events.Event, bitsPerSecond int) string {
	switch ev := ev.(type) {
	case *events.Transcript:
		return s.TranscriptLine(label, ev)
	case *events.PacketSummary:
		return s.PacketLine(ev, bitsPerSecond)
	case *events.Notice:
		return s.ErrorLine(ev)
	}
	return ""
}

// StateLine renders the control state for a status header.
func (s Styles) StateLine(mode janus.Mode, streaming, recording bool, emotion janus.Emotion) string {
	parts := []string{"mode " + mode.String()}
	if streaming {
		parts = append(parts, "streaming")
	}
	if recording {
		parts = append(parts, "recording")
	}
	if !emotion.IsAuto() {
		parts = append(parts, "emotion "+emotion.String())
	}
	return s.Meta.Render(strings.Join(parts, " · "))
}
