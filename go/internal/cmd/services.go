package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mcdev12/liftcontrol/go/internal/config"
	"github.com/mcdev12/liftcontrol/go/internal/gateway"
	"github.com/mcdev12/liftcontrol/go/internal/models"
	"github.com/mcdev12/liftcontrol/go/internal/platform/events"
	"github.com/mcdev12/liftcontrol/go/internal/platform/hub"
	"github.com/mcdev12/liftcontrol/go/internal/platform/registry"
	"github.com/mcdev12/liftcontrol/go/internal/platform/session"
	"github.com/mcdev12/liftcontrol/go/internal/relay"
	"github.com/mcdev12/liftcontrol/go/internal/store"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// lotShuffler draws lots from the package-level source, which is safe for
// concurrent use.
type lotShuffler struct{}

func (lotShuffler) Perm(n int) []int { return rand.Perm(n) }

type Services struct {
	Hub       *hub.Hub
	Platforms *registry.Registry
	Gateway   *gateway.Service
	Lifters   *store.LifterRepository
	Journal   *store.Journal

	db        *Database
	nc        *nats.Conn
	observers []*hub.AsyncObserver
	started   atomic.Bool
	closeOnce sync.Once
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Postgres/NATS → Hub → Registry (sessions) → Gateway
	s := &Services{Hub: hub.New()}

	if cfg.DatabaseEnabled {
		database, err := setupDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.db = database
		s.Lifters = store.NewLifterRepository(database.Pool)
		s.Journal = store.NewJournal(database.SQL)
		s.observe("journal", s.Journal)
	}

	var (
		js      jetstream.JetStream
		display session.RemoteDisplay
	)
	if cfg.NATSEnabled {
		natsCfg := relay.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.Name = cfg.InstanceName

		nc, jsCtx, err := relay.Connect(natsCfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.nc = nc
		js = jsCtx
		display = relay.NewDisplay(nc, cfg.DisplayTopic)

		publisher, err := relay.NewJetStreamPublisher(ctx, js, relay.DefaultJetStreamConfig())
		if err != nil {
			s.Close()
			return nil, err
		}
		s.observe("jetstream", publisher)
	}

	s.Platforms = registry.New(func(sc session.Config) *session.Session {
		deps := session.Deps{Publisher: s.Hub}
		if s.Lifters != nil {
			deps.Saver = s.Lifters
		}
		if sc.Master && display != nil {
			deps.Display = display
		}
		return session.New(sc, deps)
	})

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.JetStreamConfig.ConsumerName = consumerName(cfg.InstanceName)
	s.Gateway = gateway.NewService(gatewayCfg, s.Platforms, lotShuffler{})
	s.Hub.Subscribe(events.KindAll, s.Gateway)

	if js != nil {
		if err := s.Gateway.EnableReplication(ctx, js); err != nil {
			s.Close()
			return nil, err
		}
	}

	for _, p := range cfg.Competition.Platforms {
		sess, err := s.Platforms.Create(ctx, cfg.Competition.SessionConfig(p))
		if err != nil {
			s.Close()
			return nil, err
		}
		if p.Group == "" {
			continue
		}
		g, err := s.loadGroup(ctx, cfg.Competition, p.Group)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := sess.SetGroup(g); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to load group %s on platform %s: %w", p.Group, p.Name, err)
		}
	}

	return s, nil
}

// observe subscribes a slow observer to every hub event through a queue.
func (s *Services) observe(name string, o hub.Observer) {
	a := hub.NewAsyncObserver(name, o, 1024)
	s.observers = append(s.observers, a)
	s.Hub.Subscribe(events.KindAll, a)
}

// loadGroup prefers the database copy of a group so results survive a
// restart. The competition file seeds the database on first start.
func (s *Services) loadGroup(ctx context.Context, comp *config.Competition, name string) (*models.Group, error) {
	if s.Lifters != nil {
		g, err := s.Lifters.LoadGroup(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(g.Lifters) > 0 {
			log.Info().Str("group", name).Int("lifters", len(g.Lifters)).Msg("group restored from database")
			return g, nil
		}
	}

	g, err := comp.Group(name)
	if err != nil {
		return nil, err
	}
	if s.Lifters != nil {
		if err := s.Lifters.SaveGroup(ctx, g); err != nil {
			return nil, fmt.Errorf("failed to seed group %s: %w", name, err)
		}
	}
	return g, nil
}

// Run drives the async observers and the gateway until ctx is cancelled.
func (s *Services) Run(ctx context.Context) {
	s.started.Store(true)
	for _, a := range s.observers {
		go a.Run(ctx)
	}

	if err := s.Gateway.Start(ctx); err != nil {
		log.Error().Err(err).Msg("gateway stopped with error")
	}
}

// Close stops the platforms first so their last events still reach the
// observers, then releases NATS and the database.
func (s *Services) Close() {
	s.closeOnce.Do(func() {
		if s.Platforms != nil {
			s.Platforms.Close()
		}
		if s.started.Load() {
			for _, a := range s.observers {
				a.Close()
			}
		}
		if s.nc != nil {
			if err := s.nc.Drain(); err != nil {
				log.Error().Err(err).Msg("failed to drain NATS connection")
			}
		}
		if s.db != nil {
			s.db.Close()
		}
		log.Info().Msg("services closed")
	})
}

// consumerName derives a durable consumer name per instance. NATS rejects
// dots and spaces in durable names.
func consumerName(instance string) string {
	r := strings.NewReplacer(".", "-", " ", "-", "*", "-", ">", "-")
	return "liftcontrol-gateway-" + r.Replace(instance)
}
