// Package redisledger implements billing.Ledger on Redis.
//
// A claim is a key set with NX and a PX expiry holding "processing:<token>";
// an expired claim simply disappears, which makes takeover implicit. Marking processed
// overwrites the value and drops the expiry unless a retention is configured.
package redisledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/accountkit/pkg/billing"
)

const (
	prefixProcessing = "processing:"
	valueProcessed   = "processed"
)

var markScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[3] then
	return 0
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ttl)
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Ledger stores one key per event id.
type Ledger struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

var _ billing.Ledger = (*Ledger)(nil)

type Option func(*Ledger)

// WithPrefix namespaces ledger keys. Defaults to "accountkit:".
func WithPrefix(prefix string) Option {
	return func(l *Ledger) { l.prefix = prefix }
}

// WithRetention expires processed records after d. Zero keeps them forever.
func WithRetention(d time.Duration) Option {
	return func(l *Ledger) { l.retention = d }
}

func New(client redis.UniversalClient, opts ...Option) *Ledger {
	if client == nil {
		panic("redisledger: client is required")
	}
	l := &Ledger{client: client, prefix: "accountkit:"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) key(eventID string) string {
	return l.prefix + "billing:event:" + eventID
}

func (l *Ledger) Claim(ctx context.Context, eventID, _ string, ttl time.Duration) (string, error) {
	if eventID == "" {
		return "", billing.ErrMissingEventID
	}
	key := l.key(eventID)
	token := uuid.NewString()

	// Two rounds: the holder may expire between SETNX and GET.
	for range 2 {
		ok, err := l.client.SetNX(ctx, key, prefixProcessing+token, ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}

		state, err := l.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", err
		}
		if state == valueProcessed {
			return "", billing.ErrEventProcessed
		}
		return "", billing.ErrEventInFlight
	}
	return "", billing.ErrEventInFlight
}

func (l *Ledger) MarkProcessed(ctx context.Context, eventID, token string) error {
	n, err := markScript.Run(ctx, l.client, []string{l.key(eventID)},
		valueProcessed, l.retention.Milliseconds(), prefixProcessing+token,
	).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrEventNotClaimed
	}
	return nil
}

func (l *Ledger) Release(ctx context.Context, eventID, token string) error {
	return releaseScript.Run(ctx, l.client, []string{l.key(eventID)}, prefixProcessing+token).Err()
}
