package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no portfolio exists for a username.
	ErrNotFound = errors.New("portfolio not found")
	// ErrExists is returned by Store.Create when the username is taken.
	ErrExists = errors.New("portfolio already exists")
	// ErrInvalid is returned for requests missing identity fields.
	ErrInvalid = errors.New("invalid portfolio request")
)

// Store defines the persistence operations the Manager needs.
// Implemented by storage.SQLiteStore and storage.MongoStore.
type Store interface {
	Get(ctx context.Context, username string) (Portfolio, error)
	Create(ctx context.Context, p Portfolio) error
	Update(ctx context.Context, username string, patch Patch, updatedAt time.Time) (Portfolio, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Manager is the portfolio service used by the HTTP, MCP and CLI layers.
// Documents are read from the store on every call; nothing is cached since
// an edit in the dashboard must show up in the next chat turn.
type Manager struct {
	store Store
	clock Clock
}

// NewManager creates a Manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, clock: realClock{}}
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store Store, clock Clock) *Manager {
	return &Manager{store: store, clock: clock}
}

// NormalizeUsername lower-cases and trims a username. All lookups go
// through it so public URLs are case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Init returns the user's portfolio, creating the default document on first
// use. The bool result reports whether a document was created.
func (m *Manager) Init(ctx context.Context, username, email string) (Portfolio, bool, error) {
	username = NormalizeUsername(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return Portfolio{}, false, fmt.Errorf("%w: username and email are required", ErrInvalid)
	}

	p, err := m.store.Get(ctx, username)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Portfolio{}, false, fmt.Errorf("loading portfolio %q: %w", username, err)
	}

	now := m.clock.Now()
	p = New(username, email)
	p.CreatedAt = &now
	p.UpdatedAt = &now
	if err := m.store.Create(ctx, p); err != nil {
		if errors.Is(err, ErrExists) {
			// Lost a race with a concurrent init; the other document wins.
			existing, getErr := m.store.Get(ctx, username)
			if getErr != nil {
				return Portfolio{}, false, fmt.Errorf("loading portfolio %q: %w", username, getErr)
			}
			return existing, false, nil
		}
		return Portfolio{}, false, fmt.Errorf("creating portfolio %q: %w", username, err)
	}

	slog.Info("portfolio created", "username", username)
	p, err = m.store.Get(ctx, username)
	if err != nil {
		return Portfolio{}, false, fmt.Errorf("loading portfolio %q: %w", username, err)
	}
	return p, true, nil
}

// Get returns the stored portfolio, including its API key.
func (m *Manager) Get(ctx context.Context, username string) (Portfolio, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return Portfolio{}, fmt.Errorf("%w: username is required", ErrInvalid)
	}
	p, err := m.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Portfolio{}, err
		}
		return Portfolio{}, fmt.Errorf("loading portfolio %q: %w", username, err)
	}
	return p, nil
}

// Public returns the portfolio as shown to visitors: no API key, ongoing
// entries with empty end dates.
func (m *Manager) Public(ctx context.Context, username string) (Portfolio, error) {
	p, err := m.Get(ctx, username)
	if err != nil {
		return Portfolio{}, err
	}
	return NormalizeForDisplay(p.Redacted()), nil
}

// Update applies patch to the user's portfolio and stamps updatedAt.
func (m *Manager) Update(ctx context.Context, username string, patch Patch) (Portfolio, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return Portfolio{}, fmt.Errorf("%w: username is required", ErrInvalid)
	}

	NormalizeForStorage(&patch)
	p, err := m.store.Update(ctx, username, patch, m.clock.Now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Portfolio{}, err
		}
		return Portfolio{}, fmt.Errorf("updating portfolio %q: %w", username, err)
	}

	slog.Debug("portfolio updated", "username", username, "fields", len(patch.Fields()))
	return p, nil
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}
