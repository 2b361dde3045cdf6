package device

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// TerminalRecognizer stands in for speech recognition: one typed line is one
// finished transcript. Speech-to-text itself is an external concern; the
// loop only needs a transcript source.
type TerminalRecognizer struct {
	in          *bufio.Reader
	transcripts chan string
}

func NewTerminalRecognizer(in io.Reader) *TerminalRecognizer {
	return &TerminalRecognizer{
		in:          bufio.NewReader(in),
		transcripts: make(chan string, 1),
	}
}

func (r *TerminalRecognizer) Available() bool { return true }

func (r *TerminalRecognizer) Start(onTranscript func(raw string)) error {
	go func() {
		line, err := r.in.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		raw := strings.TrimSpace(line)
		onTranscript(raw)
		select {
		case r.transcripts <- raw:
		default:
		}
	}()
	return nil
}

func (r *TerminalRecognizer) Stop() error { return nil }

// AwaitTranscript lets the caller block until the current recording yields a
// phrase.
func (r *TerminalRecognizer) AwaitTranscript() <-chan string {
	return r.transcripts
}

// TerminalFeedback renders loop feedback on the terminal: a bell for the
// audio tone, a colored pulse line for vibration, dimmed status text.
type TerminalFeedback struct {
	found  *color.Color
	pulse  *color.Color
	status *color.Color
}

func NewTerminalFeedback() *TerminalFeedback {
	return &TerminalFeedback{
		found:  color.New(color.FgGreen, color.Bold),
		pulse:  color.New(color.FgMagenta),
		status: color.New(color.Faint),
	}
}

func (f *TerminalFeedback) Beep() {
	fmt.Print("\a")
	f.found.Println("BEEP")
}

func (f *TerminalFeedback) Vibrate(pattern []time.Duration) {
	pulses := make([]string, len(pattern))
	for i, d := range pattern {
		pulses[i] = d.String()
	}
	f.pulse.Printf("~ vibrate [%s] ~\n", strings.Join(pulses, " "))
}

func (f *TerminalFeedback) Status(text string) {
	f.status.Println(text)
}
