// Command rickverse serves Rick and Morty characters and episodes over HTTP,
// caching API responses in memory and in a configurable persistent backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/illmade-knight/go-rickverse/pkg/api"
	"github.com/illmade-knight/go-rickverse/pkg/cache"
	"github.com/illmade-knight/go-rickverse/pkg/cachepolicy"
	"github.com/illmade-knight/go-rickverse/pkg/character"
	"github.com/illmade-knight/go-rickverse/pkg/config"
	"github.com/illmade-knight/go-rickverse/pkg/episode"
	"github.com/illmade-knight/go-rickverse/pkg/microservice"
	"github.com/illmade-knight/go-rickverse/pkg/rickapi"
	"github.com/illmade-knight/go-rickverse/pkg/usecase"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rickverse: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("rickverse stopped with an error.")
		os.Exit(1)
	}
	logger.Info().Msg("rickverse stopped.")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	client, err := rickapi.NewClient(&rickapi.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout}, &http.Client{}, logger)
	if err != nil {
		return err
	}

	persist, err := openPersistence(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := persist.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close persistent backend.")
		}
	}()

	useCases, err := buildUseCases(cfg, client, persist, logger)
	if err != nil {
		return err
	}
	handler, err := api.NewHandler(useCases, logger)
	if err != nil {
		return err
	}

	server := microservice.NewBaseServer(logger, cfg.HTTPPort)
	handler.Register(server.Mux())
	if err := server.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err, ok := <-server.Err(); ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildUseCases(cfg *config.Config, client *rickapi.Client, persist *persistence, logger zerolog.Logger) (*usecase.UseCases, error) {
	exec := cachepolicy.NewExecutor(logger)

	characterStore, err := persistentStore[int, rickapi.CharacterDTO](persist, "character")
	if err != nil {
		return nil, err
	}
	characterPageStore, err := persistentStore[string, rickapi.CharacterPageDTO](persist, "character-page")
	if err != nil {
		return nil, err
	}
	episodeStore, err := persistentStore[int, rickapi.EpisodeDTO](persist, "episode")
	if err != nil {
		return nil, err
	}
	episodePageStore, err := persistentStore[int, rickapi.EpisodePageDTO](persist, "episode-page")
	if err != nil {
		return nil, err
	}
	byCharacterStore, err := persistentStore[int, []rickapi.EpisodeDTO](persist, "character-episodes")
	if err != nil {
		return nil, err
	}

	characters, err := character.NewRepository(exec, client, character.Stores{
		Volatile:       cache.NewInMemoryStore[int, rickapi.CharacterDTO](),
		Persistent:     characterStore,
		PageVolatile:   cache.NewInMemoryStore[string, rickapi.CharacterPageDTO](),
		PagePersistent: characterPageStore,
	})
	if err != nil {
		return nil, err
	}
	episodes, err := episode.NewRepository(exec, client, episode.Stores{
		Volatile:              cache.NewInMemoryStore[int, rickapi.EpisodeDTO](),
		Persistent:            episodeStore,
		PageVolatile:          cache.NewInMemoryStore[int, rickapi.EpisodePageDTO](),
		PagePersistent:        episodePageStore,
		ByCharacterVolatile:   cache.NewInMemoryStore[int, []rickapi.EpisodeDTO](),
		ByCharacterPersistent: byCharacterStore,
	})
	if err != nil {
		return nil, err
	}

	var opts []usecase.Option
	if policy, ok, err := cfg.PolicyOverride(); err != nil {
		return nil, err
	} else if ok {
		opts = append(opts, usecase.WithPolicyOverride(policy))
	}
	return usecase.New(characters, episodes, logger, opts...)
}
