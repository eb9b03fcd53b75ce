package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/edgevision/edgevisiond/pkg/camera"
	"github.com/edgevision/edgevisiond/pkg/config"
	"github.com/edgevision/edgevisiond/pkg/configdef"
	"github.com/edgevision/edgevisiond/pkg/edgevision"
	"github.com/edgevision/edgevisiond/pkg/log"
	"github.com/edgevision/edgevisiond/pkg/settings"
	"github.com/tacusci/logging/v2"
	"github.com/takama/daemon"
	"gocv.io/x/gocv"
)

const (
	name        = "edgevisiond"
	description = "Edge vision daemon which processes camera frames and broadcasts them to remote viewers"
)

type Service struct {
	daemon.Daemon
}

// Setup creates the default config file and the local settings DB.
func (service *Service) Setup() (string, error) {
	log.Info("Setting up edgevisiond service...")

	err := config.Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	if _, err := settings.Connect(); err != nil {
		return "", err
	}

	return "Setup successful...", nil
}

func (service *Service) RemoveSetup() (string, error) {
	log.Info("Removing setup for edgevisiond service...")
	if err := settings.Destroy(); err != nil {
		log.Error("unable to delete database file: %s", err.Error())
	}

	return "Removing setup successful...", nil
}

func (service *Service) Manage() (string, error) {
	usage := "Usage: edgevisiond setup | remove-setup | install | remove | start | stop | status"

	if len(os.Args) > 1 {
		command := os.Args[1]
		switch command {
		case "setup":
			return service.Setup()
		case "remove-setup":
			return service.RemoveSetup()
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	log.Info("Starting edge vision daemon...")

	server, err := edgevision.NewServer(
		config.DefaultResolver(),
		camera.Resolve(os.Getenv("EDGEVISION_VIDEO_BACKEND")),
	)
	if err != nil {
		log.Fatal(err.Error())
	}

	ctx, cancelStartup := context.WithCancel(context.Background())
	go startupServer(ctx, server)

	killSignal := <-interrupt
	fmt.Print("\r")
	log.Error("Received signal: %s", killSignal)

	cancelStartup()
	log.Info("Shutting down server...")
	<-server.Shutdown()

	var b bytes.Buffer
	gocv.MatProfile.Count()
	gocv.MatProfile.WriteTo(&b, 1)
	fmt.Print(b.String())

	return "Shutdown successful... BYE! 👋", nil
}

func startupServer(ctx context.Context, server *edgevision.Server) {
	if err := server.ConnectWithCancel(ctx); err != nil {
		log.Error(err.Error())
		return
	}
	server.SetupProcesses()
	server.RunProcesses()
}

func init() {
	logging.CallbackLabelLevel = 5
	logging.ColorLogLevelLabelOnly = true
	loggingLevel := os.Getenv("EDGEVISION_LOGGING_LEVEL")

	switch strings.ToLower(loggingLevel) {
	case "info":
		logging.CurrentLoggingLevel = logging.InfoLevel
	case "warn":
		logging.CurrentLoggingLevel = logging.WarnLevel
	case "debug":
		logging.CurrentLoggingLevel = logging.DebugLevel
		logging.CallbackLabel = true
	default:
		logging.CurrentLoggingLevel = logging.WarnLevel
	}
}

func main() {
	daemonType := daemon.SystemDaemon
	if runtime.GOOS == "darwin" {
		daemonType = daemon.UserAgent
	}

	srv, err := daemon.New(name, description, daemonType)
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	logging.Info(status) //nolint
}
