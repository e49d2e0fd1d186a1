package testfixtures

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/mentoring-scheduler/internal/application"
	"github.com/example/mentoring-scheduler/internal/notify"
	"github.com/example/mentoring-scheduler/internal/persistence/memory"
	"github.com/example/mentoring-scheduler/internal/seed"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("token"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("token")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services is a complete service graph over one in-memory store.
type Services struct {
	Store *memory.Storage
	Clock *Clock

	// Notifications records every notification raised by the services, in
	// addition to any request collector found in the context.
	Notifications *notify.Collector

	Auth         *application.AuthService
	Directory    *application.DirectoryService
	Meetings     *application.MeetingService
	Notes        *application.NotesService
	Availability *application.AvailabilityService
}

// NewServices builds the service graph over an empty store.
func (f *ServiceFactory) NewServices() *Services {
	store := memory.New()
	recorded := &notify.Collector{}
	notifier := notify.NewDispatcher(recorded)
	now := f.Clock.NowFunc()
	tokens := f.IDGenerator.NextFunc()

	return &Services{
		Store:         store,
		Clock:         f.Clock,
		Notifications: recorded,
		Auth: application.NewAuthServiceWithLogger(store, store, store, tokens, now, 24*time.Hour, f.Logger).
			WithPasswordCost(bcrypt.MinCost).
			WithNotifier(notifier),
		Directory:    application.NewDirectoryService(store, store, now, f.Logger),
		Meetings:     application.NewMeetingServiceWithLogger(store, store, notifier, linkTokens(), now, f.Logger),
		Notes:        application.NewNotesService(store, store, notifier, f.Logger),
		Availability: application.NewAvailabilityService(store, store, time.UTC, 30, f.Logger),
	}
}

// NewSeededServices builds the service graph over a store holding the demo data set.
func (f *ServiceFactory) NewSeededServices(t testing.TB) *Services {
	t.Helper()

	services := f.NewServices()
	repos := seed.Repositories{
		Directory:    services.Store,
		Meetings:     services.Store,
		Availability: services.Store,
		Accounts:     services.Store,
	}
	applied, err := seed.Apply(context.Background(), repos, seed.Demo(), seed.Options{
		PasswordCost: bcrypt.MinCost,
		Now:          f.Clock.NowFunc(),
		Logger:       f.Logger,
	})
	if err != nil {
		t.Fatalf("seed demo data: %v", err)
	}
	if !applied {
		t.Fatal("expected demo data to be applied to a fresh store")
	}
	return services
}

// SignIn opens a session for a demo account and fails the test on error.
func (s *Services) SignIn(t testing.TB, role, identifier, password string) application.Session {
	t.Helper()

	session, err := s.Auth.SignIn(context.Background(), application.SignInParams{
		Role:       role,
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		t.Fatalf("sign in %s/%s: %v", role, identifier, err)
	}
	return session
}

// linkTokens yields predictable meeting link suffixes.
func linkTokens() func() string {
	links := NewIDGenerator("link")
	return links.NextFunc()
}
