// The scanner is the terminal counterpart of the phone client: it records a
// target phrase (typed, standing in for speech), scans frames against the
// detection service, and relays found-events so companion devices get told.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/fatih/color"

	"github.com/hsqsh/maisHack25/internal/config"
	"github.com/hsqsh/maisHack25/internal/detect"
	"github.com/hsqsh/maisHack25/internal/device"
	"github.com/hsqsh/maisHack25/internal/notifier"
	"github.com/hsqsh/maisHack25/internal/pkg/logger"
	"github.com/hsqsh/maisHack25/internal/scan"
	"github.com/hsqsh/maisHack25/pkg/events"
)

func main() {
	cfg := config.Load()
	scanLogger := logger.NewIsolatedLogger("logs/scanner.log")
	defer scanLogger.Sync()

	// Event Bus (in-process)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	defer pubSub.Close()

	// Capabilities
	recognizer := device.NewTerminalRecognizer(os.Stdin)
	camera := &device.FileCameraOpener{
		Dir:    cfg.Scanner.FrameDir,
		Width:  cfg.Scanner.FrameWidth,
		Height: cfg.Scanner.FrameHeight,
	}
	feedback := device.NewTerminalFeedback()
	detector := detect.NewClient(cfg.Scanner.DetectURL, cfg.Scanner.DetectTimeout)

	machine, err := scan.NewMachine(recognizer, camera, detector, feedback, pubSub, scanLogger, scan.Config{
		Threshold:    cfg.Scanner.Threshold,
		ScanInterval: cfg.Scanner.ScanInterval,
		BeepEnabled:  cfg.Scanner.BeepEnabled,
		DebugEnabled: cfg.Scanner.DebugEnabled,
		HistoryLimit: cfg.Scanner.HistoryLimit,
	})
	if err != nil {
		log.Fatalf("scanner setup failed: %v", err)
	}
	machine.SetDetectTimeout(cfg.Scanner.DetectTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Forward found-events to the relay so peers in the session get alerted.
	relayClient := notifier.NewClient(cfg.Relay.URL, cfg.Relay.Session)
	messages, err := pubSub.Subscribe(ctx, scan.TopicScanEvents)
	if err != nil {
		log.Fatalf("event bus subscribe failed: %v", err)
	}
	go consumeEvents(ctx, messages, relayClient, scanLogger)

	// Detection service liveness check up front; scan cycles report their own
	// failures without stopping the loop.
	if err := detector.Health(ctx); err != nil {
		color.Yellow("detection service not reachable yet: %v", err)
	}

	color.Cyan("Say (type) the object to find, then press Enter:")
	if err := machine.StartRecording(); err != nil {
		log.Fatalf("recording failed: %v", err)
	}
	<-recognizer.AwaitTranscript()
	if err := machine.StopRecording(ctx); err != nil {
		log.Fatalf("could not start scanning: %v", err)
	}
	color.Cyan("Scanning for %q every %s. Ctrl+C to stop.", machine.Target(), cfg.Scanner.ScanInterval)

	waitForShutdown(machine)
}

func consumeEvents(ctx context.Context, messages <-chan *message.Message, relayClient *notifier.Client, log logger.ILogger) {
	for msg := range messages {
		env, err := scan.DecodeEvent(msg)
		if err != nil {
			log.Warn("Scanner", "Dropping malformed scan event", map[string]interface{}{"error": err.Error()})
			msg.Ack()
			continue
		}

		if env.Type == events.TypeFound {
			resp, err := relayClient.Notify(ctx, "found", env.Data)
			switch {
			case err != nil:
				log.Warn("Scanner", "Relay notify failed", map[string]interface{}{"error": err.Error()})
			case resp.Throttled:
				log.Debug("Scanner", "Relay notify throttled", nil)
			default:
				log.Info("Scanner", "Relay notified", map[string]interface{}{"delivered": resp.Delivered})
			}
		}
		msg.Ack()
	}
}

func waitForShutdown(machine *scan.Machine) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	machine.StopDetecting()
	for _, entry := range machine.History() {
		fmt.Printf("%s  %s  detections=%d preview=%t\n",
			entry.At.Format("15:04:05"), entry.Target, len(entry.Detections), entry.HasPreview)
	}
}
