package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fraccional/internal/event"
	"fraccional/internal/model"
)

const (
	DefaultRefreshInterval = 10 * time.Minute
	DefaultLoginPath       = "/auth/login"

	msgCheckFailed  = "Error al verificar la sesión"
	msgLogoutFailed = "Error al cerrar sesión"
)

// Validator yields a usable session or nil.
type Validator interface {
	GetValidSession(ctx context.Context) (*model.Session, error)
}

// Account is the identity side of the provider used by the keeper.
type Account interface {
	GetUser(ctx context.Context) (*model.User, error)
	SignOut(ctx context.Context) error
}

// State is a snapshot of the keeper.
type State struct {
	Session         *model.Session
	User            *model.User
	Loading         bool
	Error           string
	IsAuthenticated bool
}

// StateView is the token-free form of State published on the bus.
type StateView struct {
	Authenticated bool       `json:"authenticated"`
	Email         string     `json:"email,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

func (s State) View() StateView {
	view := StateView{Authenticated: s.IsAuthenticated, Error: s.Error}
	if s.User != nil {
		view.Email = s.User.Email
	}
	if s.Session != nil && s.Session.ExpiresAt != nil {
		exp := s.Session.Expiry()
		view.ExpiresAt = &exp
	}
	return view
}

type KeeperOptions struct {
	Interval  time.Duration
	LoginPath string
	// Navigate is called with LoginPath after a successful logout.
	Navigate func(path string)
	Bus      event.Bus
}

// Keeper caches one client's session in memory and re-validates it on
// start, on every interval tick and on visibility wake-ups. It never
// persists anything itself.
type Keeper struct {
	sessions Validator
	account  Account
	opts     KeeperOptions

	mu    sync.RWMutex
	state State

	wake chan struct{}
}

func NewKeeper(sessions Validator, account Account, opts KeeperOptions) *Keeper {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}

	return &Keeper{
		sessions: sessions,
		account:  account,
		opts:     opts,
		state:    State{Loading: true},
		wake:     make(chan struct{}, 1),
	}
}

func (k *Keeper) State() State {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.state
}

// Run checks the session once, then keeps it fresh until ctx is done.
// Ticks and wake-ups are ignored while unauthenticated.
func (k *Keeper) Run(ctx context.Context) error {
	k.Check(ctx)

	ticker := time.NewTicker(k.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if k.State().IsAuthenticated {
				k.Check(ctx)
			}
		case <-k.wake:
			if k.State().IsAuthenticated {
				k.Check(ctx)
			}
		}
	}
}

// SetVisible reports a visibility change; becoming visible wakes Run.
func (k *Keeper) SetVisible(visible bool) {
	if !visible {
		return
	}
	select {
	case k.wake <- struct{}{}:
	default:
	}
}

// Check re-runs the resolver and, when a session exists, loads its user.
func (k *Keeper) Check(ctx context.Context) State {
	k.mu.Lock()
	k.state.Loading = true
	k.state.Error = ""
	k.mu.Unlock()

	current, err := k.sessions.GetValidSession(ctx)
	if err != nil {
		slog.Error("session check failed", "error", err)
		return k.set(State{Error: msgCheckFailed}, event.TypeSessionCheckFailed)
	}

	var user *model.User
	if current != nil {
		user, err = k.account.GetUser(ctx)
		if err != nil {
			slog.Warn("session user lookup failed", "error", err)
			user = nil
		}
	}

	return k.set(State{
		Session:         current,
		User:            user,
		IsAuthenticated: current != nil && user != nil,
	}, event.TypeSessionUpdated)
}

// Logout signs out and navigates to the login path. When the provider
// sign-out fails the state is kept and the error recorded.
func (k *Keeper) Logout(ctx context.Context) error {
	if err := k.account.SignOut(ctx); err != nil {
		slog.Error("sign out failed", "error", err)
		k.mu.Lock()
		k.state.Error = msgLogoutFailed
		k.mu.Unlock()
		return err
	}

	k.set(State{}, event.TypeSessionSignedOut)
	if k.opts.Navigate != nil {
		k.opts.Navigate(k.opts.LoginPath)
	}
	return nil
}

func (k *Keeper) set(state State, typ event.Type) State {
	k.mu.Lock()
	k.state = state
	k.mu.Unlock()

	if k.opts.Bus != nil {
		k.opts.Bus.Publish(event.Event{Type: typ, Payload: state.View()})
	}
	return state
}
