// cassiad is the compositor daemon: it loads configuration, brings up the
// GPU context and display loop, and serves client connections over an
// abstract-namespace socket until told to stop.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	chlog "github.com/charmbracelet/log"
	"golang.org/x/sys/unix"

	"github.com/cassia-project/compositor/internal/compositor"
	"github.com/cassia-project/compositor/internal/config"
	"github.com/cassia-project/compositor/internal/core"
	"github.com/cassia-project/compositor/internal/gpu"
	"github.com/cassia-project/compositor/internal/server"
	"github.com/cassia-project/compositor/internal/swapchain"
	"github.com/cassia-project/compositor/internal/transport"
)

func main() {
	cfgPath := "cassiad.toml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	watcher, err := config.NewWatcher(cfgPath)
	if err != nil {
		core.LogWarn("main: %v, running with defaults", err)
		watcher = nil
	}

	cfg := config.Default()
	if watcher != nil {
		cfg = watcher.Current()
	}

	if err := run(cfg, watcher); err != nil {
		core.LogError("main: %v", err)
		os.Exit(1)
	}
}

func applyLogLevel(level string) {
	if parsed, err := chlog.ParseLevel(config.ParseLogLevel(level)); err == nil {
		core.SetLevel(parsed)
	}
}

// run wires every process-wide singleton (GPU context, engine, display
// loop, accept loop) and blocks until a shutdown signal or a fatal
// component error, then tears everything down in dependency order: the
// accept loop first (so no new work arrives), then the display loop
// (joined only after every connection handler has released its
// swapchains, leaving the engine empty), then the GPU context. All of
// them are brought up here at start, not on the first client connection.
func run(cfg config.Config, watcher *config.Watcher) error {
	applyLogLevel(cfg.LogLevel)

	if watcher != nil {
		watcher.OnReload(func(c config.Config) { applyLogLevel(c.LogLevel) })
		watchDone := make(chan struct{})
		defer close(watchDone)
		go func() {
			if err := watcher.Run(watchDone); err != nil {
				core.LogError("config: watch loop exited: %v", err)
			}
		}()
	}

	driver, err := gpu.NewVulkanDriver(gpu.UnimplementedAllocator{})
	if err != nil {
		return fmt.Errorf("gpu context: %w", err)
	}

	engine := swapchain.NewEngine(driver, func(fd int) { unix.Close(fd) })
	surfaceP := compositor.NewSurfaceProvider()
	displayLoop := compositor.NewDisplayLoop(driver, surfaceP, engine, cfg.FramesInFlight)

	ln, err := transport.Listen(cfg.SocketName, cfg.ListenBacklog)
	if err != nil {
		driver.Close()
		return fmt.Errorf("transport listen: %w", err)
	}
	// Clients discover the socket name through this environment variable,
	// the same convention original_source's client library reads.
	os.Setenv("CASSIA_SOCK", cfg.SocketName)

	srv := server.New(engine)

	displayErrCh := make(chan error, 1)
	go func() { displayErrCh <- displayLoop.Run() }()

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- srv.Serve(ln) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	displayAlreadyExited := false
	select {
	case <-sigCh:
		core.LogInfo("main: shutdown signal received")
	case err := <-serveErrCh:
		if err != nil {
			core.LogError("main: accept loop exited: %v", err)
		}
	case err := <-displayErrCh:
		displayAlreadyExited = true
		if err != nil {
			core.LogError("main: display loop exited: %v", err)
		}
	}

	ln.Close()
	srv.Close()

	displayLoop.Stop()
	surfaceP.Close()
	if !displayAlreadyExited {
		<-displayErrCh
	}

	if err := driver.Close(); err != nil {
		core.LogError("main: gpu context close: %v", err)
	}
	return nil
}
