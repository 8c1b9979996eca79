package history

import (
	"sync"
	"testing"
	"time"

	"github.com/januslink/janus/pkg/janus"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndAll(t *testing.T) {
	l := openTestLog(t)

	recs := []Record{
		{Direction: Sent, Text: "first", Mode: janus.ModeSemantic, AtMs: 1000,
			Prosody: &janus.Prosody{Energy: "Loud", Pitch: "High"}},
		{Direction: Received, Text: "second", Mode: janus.ModeTextOnly, AtMs: 2000},
		{Direction: Sent, Text: "third", Mode: janus.ModeMorse, AtMs: 3000},
	}
	for _, r := range recs {
		if err := l.Append(r); err != nil {
			t.Fatalf("Append(%q): %v", r.Text, err)
		}
	}

	var got []Record
	for rec, err := range l.All() {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		got = append(got, rec)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records; want 3", len(got))
	}
	for i, want := range recs {
		if got[i].Text != want.Text || got[i].Direction != want.Direction || got[i].Mode != want.Mode {
			t.Errorf("record %d = %+v; want %+v", i, got[i], want)
		}
	}
	if got[0].Prosody == nil || got[0].Prosody.Energy != "Loud" {
		t.Errorf("prosody not round-tripped: %+v", got[0].Prosody)
	}
	if got[1].Prosody != nil {
		t.Errorf("absent prosody came back as %+v", got[1].Prosody)
	}
}

func TestAppendStampsZeroTime(t *testing.T) {
	l := openTestLog(t)
	before := time.Now().UnixMilli()
	if err := l.Append(Record{Direction: Sent, Text: "now"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	for rec, err := range l.All() {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		if rec.AtMs < before {
			t.Errorf("AtMs = %d; want >= %d", rec.AtMs, before)
		}
	}
}

func TestSameMillisecondOrdering(t *testing.T) {
	l := openTestLog(t)
	for _, text := range []string{"a", "b", "c"} {
		if err := l.Append(Record{Direction: Sent, Text: text, AtMs: 5000}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	var texts []string
	for rec, err := range l.All() {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		texts = append(texts, rec.Text)
	}
	if len(texts) != 3 || texts[0] != "a" || texts[1] != "b" || texts[2] != "c" {
		t.Errorf("order = %v; want [a b c]", texts)
	}
}

func TestConcurrentAppends(t *testing.T) {
	l := openTestLog(t)

	// Many appenders stamping the same millisecond: every record must
	// land under its own key, none overwritten.
	atMs := time.Now().UnixMilli()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				if err := l.Append(Record{Direction: Sent, Text: "calling", AtMs: atMs}); err != nil {
					t.Errorf("Append: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	n := 0
	for _, err := range l.All() {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		n++
	}
	if n != 40 {
		t.Errorf("got %d records; want 40", n)
	}
}

func TestSinceAndBetween(t *testing.T) {
	l := openTestLog(t)
	for _, atMs := range []int64{1000, 2000, 3000, 4000} {
		if err := l.Append(Record{Direction: Sent, Text: "x", AtMs: atMs}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	count := func(seq func(func(Record, error) bool)) int {
		n := 0
		for _, err := range seq {
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			n++
		}
		return n
	}

	if n := count(l.Since(time.UnixMilli(3000))); n != 2 {
		t.Errorf("Since(3000) = %d records; want 2", n)
	}
	if n := count(l.Between(time.UnixMilli(2000), time.UnixMilli(4000))); n != 2 {
		t.Errorf("Between(2000, 4000) = %d records; want 2", n)
	}
}

func TestRecent(t *testing.T) {
	l := openTestLog(t)
	for i, text := range []string{"old", "mid", "new"} {
		if err := l.Append(Record{Direction: Sent, Text: text, AtMs: int64(1000 * (i + 1))}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := l.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Text != "new" || got[1].Text != "mid" {
		t.Errorf("Recent(2) = %+v; want [new mid]", got)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Error("Open with no Dir succeeded; want error")
	}
}
