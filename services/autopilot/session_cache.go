package autopilot

import (
	"context"
	"time"

	"sjrako-backend/lib/pagedriver"
	"sjrako-backend/lib/scrapers/sjrako/core"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// NewDriverFunc builds a fresh page driver for a new session.
type NewDriverFunc func() (pagedriver.Driver, error)

// SessionCache keeps logged-in clients around between autopilot runs
// so back-to-back runs for the same account reuse one portal session.
// Entries expire after 15 minutes, matching the portal's own session
// timeout.
type SessionCache struct {
	cache     *expirable.LRU[string, *core.Client]
	newDriver NewDriverFunc
	baseUrl   string
}

func NewSessionCache(newDriver NewDriverFunc, baseUrl string) SessionCache {
	return SessionCache{
		cache:     expirable.NewLRU[string, *core.Client](64, nil, time.Minute*15),
		newDriver: newDriver,
		baseUrl:   baseUrl,
	}
}

// Get returns a logged-in client for the account, logging in through a
// fresh driver on a cache miss.
func (s SessionCache) Get(ctx context.Context, username, password string) (*core.Client, error) {
	cached, hit := s.cache.Get(username)
	if hit && cached.LoggedIn() {
		return cached, nil
	}

	driver, err := s.newDriver()
	if err != nil {
		return nil, err
	}
	client := core.NewClient(core.ClientOptions{
		Driver:  driver,
		BaseUrl: s.baseUrl,
	})
	err = client.Login(ctx, username, password)
	if err != nil {
		client.Close(ctx)
		return nil, err
	}

	s.cache.Add(username, client)
	return client, nil
}

// Drop forgets the account's cached session and logs it out.
func (s SessionCache) Drop(ctx context.Context, username string) {
	cached, hit := s.cache.Get(username)
	if hit {
		cached.Close(ctx)
		s.cache.Remove(username)
	}
}
