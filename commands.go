package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/samandartukhtayev/user-directory/config"
	"github.com/samandartukhtayev/user-directory/fetcher"
	"github.com/samandartukhtayev/user-directory/page"
	"github.com/samandartukhtayev/user-directory/repository"
	"github.com/samandartukhtayev/user-directory/server"
	"github.com/samandartukhtayev/user-directory/sharding"
	"github.com/samandartukhtayev/user-directory/snapshot"
)

type serveCmd struct {
	Snapshot bool `help:"Mount the page with the last prefetched snapshot instead of fetching."`
}

func (c *serveCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var initial page.InitialData
	if c.Snapshot {
		var err error
		if initial, err = a.loadInitial(ctx); err != nil {
			return err
		}
	}

	renderer, err := page.NewRenderer(a.cfg.Page.Title)
	if err != nil {
		return err
	}
	client := fetcher.NewClient(a.cfg.Fetcher, a.log)
	handler := server.NewPageHandler(renderer, client, a.cfg.Page.LoadingDelay.Duration, initial, a.log)
	srv := server.NewServer(a.cfg.Server.Addr(), handler, a.log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Stop()
	}
}

type renderCmd struct {
	Out      string `help:"Where to write the page; - for stdout." default:"-" placeholder:"FILE"`
	Snapshot bool   `help:"Render the last prefetched snapshot instead of fetching."`
}

func (c *renderCmd) Run(a *app) error {
	ctx := context.Background()

	var initial page.InitialData
	if c.Snapshot {
		var err error
		if initial, err = a.loadInitial(ctx); err != nil {
			return err
		}
	}

	renderer, err := page.NewRenderer(a.cfg.Page.Title)
	if err != nil {
		return err
	}

	// A static page has nothing to show while loading, so skip the delay
	loader := page.NewLoader(fetcher.NewClient(a.cfg.Fetcher, a.log), 0, initial, a.log)
	view := loader.Load(ctx, nil)

	var buf bytes.Buffer
	if err := renderer.RenderDocument(&buf, view); err != nil {
		return err
	}

	if c.Out == "-" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := writeFile(c.Out, buf.Bytes()); err != nil {
		return err
	}
	a.log.Info("wrote %s page to %s (%d users)", view.State, c.Out, len(view.Users))
	return nil
}

type prefetchCmd struct{}

func (c *prefetchCmd) Run(a *app) error {
	ctx := context.Background()

	client := fetcher.NewClient(a.cfg.Fetcher, a.log)
	users, fetchErr := client.FetchUsers(ctx)
	if fetchErr != nil {
		a.log.Warn("prefetch failed, saving %s: %v", fetcher.KindOf(fetchErr), fetchErr)
	}
	snap := snapshot.FromResult(users, fetchErr, time.Now().UTC())

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	a.log.Info("saved snapshot with %d users to the %s store", len(snap.Users), a.cfg.Snapshot.Store)

	if repo, ok := store.(*repository.UserRepository); ok {
		counts, err := repo.CountUsersPerShard(ctx)
		if err != nil {
			return err
		}
		for shardID := 0; shardID < len(counts); shardID++ {
			a.log.Info("shard %d: %d users", shardID, counts[shardID])
		}
	}
	return nil
}

// openStore opens the configured snapshot store; the returned func releases it
func (a *app) openStore(ctx context.Context) (snapshot.Store, func() error, error) {
	switch a.cfg.Snapshot.Store {
	case config.StorePostgres:
		sm, err := sharding.NewShardManager(ctx, a.cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewUserRepository(sm), sm.Close, nil
	default:
		return snapshot.NewFileStore(a.cfg.Snapshot.Path), func() error { return nil }, nil
	}
}

// loadInitial reads the last snapshot. Without one the page fetches as usual.
func (a *app) loadInitial(ctx context.Context) (page.InitialData, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return page.InitialData{}, err
	}
	defer closeStore()

	snap, err := store.Load(ctx)
	if errors.Is(err, snapshot.ErrNotFound) {
		a.log.Warn("no snapshot in the %s store, fetching on every mount", a.cfg.Snapshot.Store)
		return page.InitialData{}, nil
	}
	if err != nil {
		return page.InitialData{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	a.log.Info("using snapshot from %s", snap.FetchedAt.Format(time.RFC3339))
	return snap.InitialData(), nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
