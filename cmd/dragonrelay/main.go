package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tacusci/logging/v2"
	"github.com/takama/daemon"
	"github.com/tauraamui/dragonrelay/pkg/api"
	"github.com/tauraamui/dragonrelay/pkg/camera"
	"github.com/tauraamui/dragonrelay/pkg/config"
	"github.com/tauraamui/dragonrelay/pkg/configdef"
	"github.com/tauraamui/dragonrelay/pkg/dragon"
	"github.com/tauraamui/dragonrelay/pkg/log"
	"github.com/tauraamui/dragonrelay/pkg/video"
	"github.com/tauraamui/dragonrelay/pkg/video/videobackend"
	"gocv.io/x/gocv"
)

const (
	name        = "dragon_relay"
	description = "Dragon relay service which republishes a camera as an MJPEG stream"
)

type Service struct {
	daemon.Daemon
}

func (service *Service) Setup() (string, error) {
	log.Info("Setting up dragonrelay service...")

	err := config.DefaultCreator().Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	return "Setup successful...", nil
}

func (service *Service) RemoveSetup() (string, error) {
	log.Info("Removing setup for dragonrelay service...")
	if err := config.DefaultDestroyer().Destroy(); err != nil {
		log.Error("unable to delete config file: %s", err.Error())
	}

	return "Removing setup successful...", nil
}

func (service *Service) Manage() (string, error) {
	usage := "Usage: dragonrelay setup | remove-setup | install | remove | start | stop | status"

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

	log.Info("Starting dragon relay...")

	values, err := config.DefaultResolver().Resolve()
	if err != nil {
		return "", err
	}

	server, err := dragon.NewServer(resolvedConfig(values), resolveBackend(values))
	if err != nil {
		return "", err
	}
	conf := server.Config()
	if conf.Debug {
		log.SetLevel("debug")
	}

	ctx, cancelStartup := context.WithCancel(context.Background())
	defer cancelStartup()
	if err := server.Start(ctx); err != nil {
		if errors.Is(err, camera.ErrDeviceUnavailable) {
			return "", fmt.Errorf("unable to start relay: %w", err)
		}
		return "", err
	}

	httpServer := api.NewHTTPServer(conf.ListenAddress, api.New(server, api.Options{
		MetricsEnabled: conf.MetricsEnabled,
	}))
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Serving video feed on %s/video_feed", conf.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case killSignal := <-interrupt:
		fmt.Print("\r")
		log.Error("Received signal: %s", killSignal)
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server failed: %v", err)
		}
	}

	cancelStartup()
	log.Info("Shutting down relay...")
	<-server.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Unable to gracefully stop HTTP server: %v", err)
	}

	if conf.Debug {
		var b bytes.Buffer
		gocv.MatProfile.WriteTo(&b, 1)
		fmt.Print(b.String())
	}

	return "Shutdown successful... BYE! 👋", nil
}

type resolvedConfig configdef.Values

func (rc resolvedConfig) Resolve() (configdef.Values, error) {
	return configdef.Values(rc), nil
}

func resolveBackend(values configdef.Values) video.Backend {
	if values.Camera.Mock {
		return videobackend.Mock()
	}
	return videobackend.Resolve(os.Getenv("DRAGON_VIDEO_BACKEND"))
}

func init() {
	log.SetLevel(os.Getenv("DRAGON_LOGGING_LEVEL"))
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
