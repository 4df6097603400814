package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/accountkit/pkg/email"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	"github.com/dmitrymomot/accountkit/pkg/logger"
)

const minPasswordLength = 6

type account struct {
	user identity.User
	hash []byte
}

// Provider is an in-memory identity.Authenticator and identity.AccountRemover
// for development and tests. Accounts do not survive a restart.
type Provider struct {
	mu      sync.RWMutex
	users   map[string]*account // by id
	byEmail map[string]string
	revoked map[string]time.Time // token id -> expiry

	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	cost       int
	mailer     email.EmailSender
	now        func() time.Time
	log        *slog.Logger
}

type Option func(*Provider)

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// WithClock overrides the time source used for token issue and validation.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New builds a Provider. Recovery links are delivered through mailer.
func New(cfg Config, mailer email.EmailSender, opts ...Option) (*Provider, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrWeakSecret
	}
	p := &Provider{
		users:      make(map[string]*account),
		byEmail:    make(map[string]string),
		revoked:    make(map[string]time.Time),
		secret:     []byte(cfg.Secret),
		sessionTTL: cfg.SessionTTL,
		resetTTL:   cfg.ResetTTL,
		cost:       cfg.BcryptCost,
		mailer:     mailer,
		now:        time.Now,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if p.sessionTTL <= 0 {
		p.sessionTTL = 24 * time.Hour
	}
	if p.resetTTL <= 0 {
		p.resetTTL = time.Hour
	}
	if p.cost == 0 {
		p.cost = bcrypt.DefaultCost
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (p *Provider) hashPassword(password string) ([]byte, error) {
	if len(password) < minPasswordLength {
		return nil, identity.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, identity.ErrWeakPassword
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

func (p *Provider) session(u identity.User) (*identity.Session, error) {
	tok, exp, err := p.issue(u.ID, u.Email, audienceSession, p.sessionTTL)
	if err != nil {
		return nil, errors.Join(identity.ErrProvider, err)
	}
	return &identity.Session{AccessToken: tok, ExpiresAt: exp, User: u}, nil
}

// resolve returns the live account behind a token of one of audiences.
func (p *Provider) resolve(raw string, audiences ...string) (*claims, *account, error) {
	if raw == "" {
		return nil, nil, identity.ErrUnauthenticated
	}
	c, err := p.parse(raw, audiences...)
	if err != nil {
		return nil, nil, identity.ErrUnauthenticated
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.revoked[c.ID]; ok {
		return nil, nil, identity.ErrUnauthenticated
	}
	acc, ok := p.users[c.Subject]
	if !ok {
		return nil, nil, identity.ErrUnauthenticated
	}
	return c, acc, nil
}

// revoke must be called with p.mu held.
func (p *Provider) revoke(c *claims) {
	now := p.now()
	for id, exp := range p.revoked {
		if !exp.After(now) {
			delete(p.revoked, id)
		}
	}
	if c.ExpiresAt != nil {
		p.revoked[c.ID] = c.ExpiresAt.Time
	}
}

func (p *Provider) CurrentUser(ctx context.Context, accessToken string) (*identity.User, error) {
	_, acc, err := p.resolve(accessToken, audienceSession)
	if err != nil {
		return nil, err
	}
	u := acc.user
	return &u, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, emailAddr, password string) (*identity.Session, error) {
	p.mu.RLock()
	id, ok := p.byEmail[normalizeEmail(emailAddr)]
	var acc *account
	if ok {
		acc = p.users[id]
	}
	p.mu.RUnlock()

	if acc == nil {
		return nil, identity.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, identity.ErrInvalidCredentials
	}
	return p.session(acc.user)
}

func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	c, err := p.parse(accessToken, audienceSession)
	if err != nil {
		return nil
	}
	p.mu.Lock()
	p.revoke(c)
	p.mu.Unlock()
	return nil
}

func (p *Provider) SignUp(ctx context.Context, emailAddr, password string) (*identity.Session, error) {
	addr := normalizeEmail(emailAddr)
	if addr == "" {
		return nil, identity.ErrInvalidCredentials
	}
	hash, err := p.hashPassword(password)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if _, taken := p.byEmail[addr]; taken {
		p.mu.Unlock()
		return nil, identity.ErrEmailTaken
	}
	u := identity.User{ID: uuid.NewString(), Email: addr, CreatedAt: p.now().UTC()}
	p.users[u.ID] = &account{user: u, hash: hash}
	p.byEmail[addr] = u.ID
	p.mu.Unlock()

	p.log.InfoContext(ctx, "local account created", logger.UserID(u.ID), logger.Component("identity.local"))
	return p.session(u)
}

func (p *Provider) SendPasswordReset(ctx context.Context, emailAddr, redirectURL string) error {
	p.mu.RLock()
	id, ok := p.byEmail[normalizeEmail(emailAddr)]
	var u identity.User
	if ok {
		u = p.users[id].user
	}
	p.mu.RUnlock()
	if !ok {
		return nil
	}

	tok, _, err := p.issue(u.ID, u.Email, audienceRecovery, p.resetTTL)
	if err != nil {
		return errors.Join(identity.ErrProvider, err)
	}
	link, err := url.Parse(redirectURL)
	if err != nil {
		return fmt.Errorf("invalid redirect url: %w", err)
	}
	q := link.Query()
	q.Set("token", tok)
	link.RawQuery = q.Encode()

	msg, err := email.PasswordReset(u.Email, link.String())
	if err != nil {
		return errors.Join(identity.ErrProvider, err)
	}
	if err := p.mailer.SendEmail(ctx, msg); err != nil {
		return errors.Join(identity.ErrProvider, err)
	}
	return nil
}

// UpdatePassword accepts a session token or a recovery token. Recovery
// tokens are consumed.
func (p *Provider) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	c, _, err := p.resolve(accessToken, audienceSession, audienceRecovery)
	if err != nil {
		return err
	}
	hash, err := p.hashPassword(newPassword)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.users[c.Subject]
	if !ok {
		return identity.ErrUnauthenticated
	}
	acc.hash = hash
	if slices.Contains(c.Audience, audienceRecovery) {
		p.revoke(c)
	}
	return nil
}

func (p *Provider) DeleteUser(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	delete(p.byEmail, acc.user.Email)
	delete(p.users, userID)
	return nil
}
