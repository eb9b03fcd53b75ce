package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/edgevision/edgevisiond/pkg/broadcast"
	"github.com/edgevision/edgevisiond/pkg/log"
	"github.com/edgevision/edgevisiond/pkg/settings"
	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/edgevision/edgevisiond/pkg/viewer"
	"github.com/tacusci/logging/v2"
)

func main() {
	host := flag.String("host", "", "stream host to connect to (defaults to the last used host)")
	port := flag.Int("port", broadcast.DefaultPort, "stream port")
	rotation := flag.String("rotation", "none", "rotate received frames: none, 90, 180 or 270")
	flag.Parse()

	logging.ColorLogLevelLabelOnly = true
	logging.CurrentLoggingLevel = logging.WarnLevel

	db, err := settings.Connect()
	if err != nil {
		log.Fatal("unable to open settings store: %v", err)
	}
	store := settings.NewStore(db)

	target := strings.TrimSpace(*host)
	if target == "" {
		last, err := store.LastHost()
		if err != nil {
			log.Fatal("no host given and no previously used host on record")
		}
		target = last
	}

	rot, ok := videoframe.ParseRotation(*rotation)
	if !ok {
		log.Fatal("unknown rotation %q, want none, 90, 180 or 270", *rotation)
	}

	client := viewer.New(
		viewer.NewTerminalDisplay(),
		viewer.WithRotation(rot),
		viewer.WithStatusListener(func(s viewer.Status) {
			log.Info("stream %s", s)
		}),
	)

	if err := client.Connect(target, *port); err != nil {
		// reconnection attempts continue in the background
		log.Warn("initial connection failed: %v", err)
	} else if err := store.SaveLastHost(target); err != nil {
		log.Warn("unable to remember stream host: %v", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	client.Disconnect()
	fmt.Print("\x1b[2J\x1b[H")
	fmt.Printf("Disconnected from %s:%d\n", target, *port)
}
