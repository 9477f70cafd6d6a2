// Package redis provides a homophones.Source backed by Redis lists.
//
// Each word of a group is stored under its own key ("homophones:<word>") as a
// list holding the full group in user order, so a lookup is a single LRANGE.
// Groups are shared between hosts that point at the same Redis instance.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrWong99/homophoner/pkg/provider/homophones"
)

// DefaultKeyPrefix is prepended to every lowercase word to form its key.
const DefaultKeyPrefix = "homophones:"

var _ homophones.Source = (*Source)(nil)

// Source reads homophone groups from Redis.
type Source struct {
	client goredis.UniversalClient
	prefix string
}

// Option is a functional option for New.
type Option func(*Source)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(p string) Option {
	return func(s *Source) {
		s.prefix = p
	}
}

// New wraps an existing client.
func New(client goredis.UniversalClient, opts ...Option) *Source {
	s := &Source{client: client, prefix: DefaultKeyPrefix}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Source, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis homophones: ping %s: %w", addr, err)
	}
	return New(client, opts...), nil
}

func (s *Source) key(word string) string {
	return s.prefix + strings.ToLower(strings.TrimSpace(word))
}

// Homophones implements homophones.Source.
func (s *Source) Homophones(ctx context.Context, word string) ([]string, error) {
	group, err := s.client.LRange(ctx, s.key(word), 0, -1).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis homophones: lookup %q: %w", word, err)
	}
	if len(group) == 0 {
		return nil, nil
	}
	return group, nil
}

// AddGroup stores words as one group, replacing any group previously stored
// for each member. At least two distinct words are required.
func (s *Source) AddGroup(ctx context.Context, words ...string) error {
	var group []string
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(w)]; ok {
			continue
		}
		seen[strings.ToLower(w)] = struct{}{}
		group = append(group, w)
	}
	if len(group) < 2 {
		return errors.New("redis homophones: a group needs at least two distinct words")
	}

	members := make([]any, len(group))
	for i, w := range group {
		members[i] = w
	}
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for _, w := range group {
			p.Del(ctx, s.key(w))
			p.RPush(ctx, s.key(w), members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis homophones: add group: %w", err)
	}
	return nil
}

// RemoveWord deletes the group stored for word.
func (s *Source) RemoveWord(ctx context.Context, word string) error {
	if err := s.client.Del(ctx, s.key(word)).Err(); err != nil {
		return fmt.Errorf("redis homophones: remove %q: %w", word, err)
	}
	return nil
}

// Ping reports whether Redis is reachable. Used as a readiness check.
func (s *Source) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Source) Close() error {
	return s.client.Close()
}
