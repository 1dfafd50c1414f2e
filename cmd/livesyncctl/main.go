// livesyncctl is a thin demo front end for the live-sync engine: it loads
// its flags from the environment (internal/config), runs one full rebuild,
// then watches the project's app directory and logs each raw fsnotify
// event (op and path); it does not pass them to
// LiveSyncCoordinator.OnEvent or classify them. Device discovery and the
// install/transfer/refresh collaborators a real front end would supply are
// out of scope here — see SPEC_FULL.md's Non-goals — so this binary never
// calls FullSync/flush, only the parts that need no attached device:
// Rebuild and event logging.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/nativescript-oss/livesync/internal/config"
	"github.com/nativescript-oss/livesync/internal/livesync"
	"github.com/nativescript-oss/livesync/internal/obslog"
	"github.com/nativescript-oss/livesync/internal/projectwatch"
	"github.com/nativescript-oss/livesync/pkg/filestore"
	"github.com/nativescript-oss/livesync/pkg/pathutil"
	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("configuration error: " + err.Error())
	}

	log, err := obslog.New()
	if err != nil {
		panic("logging init error: " + err.Error())
	}
	defer log.Sync()

	log.Infof("livesyncctl starting for project %s, platform %s", cfg.ProjectRoot, cfg.Platform)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Infof("shutting down...")
		cancel()
	}()

	store := filestore.NewOS()
	coord := livesync.New(store, nil, nil, nil, nil, log)

	target := livesync.PlatformTarget{
		ProjectRoot:   cfg.ProjectRoot,
		PlatformsRoot: cfg.PlatformsRoot,
		AppBasename:   cfg.AppBasename,
		Platform:      pkgmodel.Platform(cfg.Platform),
	}

	log.Infof("Preparing project...")
	if _, err := coord.Rebuild(target); err != nil {
		log.Errorf("rebuild failed: %v", err)
		os.Exit(1)
	}
	log.Infof("Successfully prepared project for %s", cfg.Platform)

	appDir := pathutil.NativeJoin(cfg.ProjectRoot, "app")
	watcher, err := projectwatch.New(appDir, func(evt fsnotify.Event) {
		log.Infof("fs event: %s %s", evt.Op, evt.Name)
	}, log)
	if err != nil {
		log.Errorf("watch %s: %v", appDir, err)
		os.Exit(1)
	}
	defer watcher.Close()

	log.Infof("Watching %s for changes, press Ctrl+C to stop", appDir)
	watcher.Run(ctx)
	fmt.Println("livesyncctl stopped")
}
