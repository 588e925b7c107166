// Package provider tracks which image-generation provider is active and
// which secret each one uses.
package provider

import (
	"strings"
	"sync"
)

// Provider ids. A direct provider returns the image in the generation
// response itself; a queue provider hands back a task to poll.
const (
	Direct = "direct"
	Queue  = "queue"
)

func Known(id string) bool {
	return id == Direct || id == Queue
}

// Resolver resolves the effective secret for the active provider. An
// explicitly user-entered secret always beats the ambient environment
// one, and switching providers never consults the other provider's
// secrets. No call is ever made to validate a secret up front; validity
// is learned from a failed generation.
type Resolver struct {
	mu     sync.Mutex
	active string
	env    map[string]string
	user   map[string]string
}

func NewResolver(active string, envSecrets map[string]string) *Resolver {
	active = strings.TrimSpace(active)
	if !Known(active) {
		active = Direct
	}

	env := make(map[string]string, len(envSecrets))
	for id, secret := range envSecrets {
		if s := strings.TrimSpace(secret); s != "" {
			env[id] = s
		}
	}

	return &Resolver{
		active: active,
		env:    env,
		user:   make(map[string]string),
	}
}

func (r *Resolver) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// SetActive switches the active provider. Unknown ids are ignored so a
// bad request cannot wedge the selection.
func (r *Resolver) SetActive(id string) bool {
	id = strings.TrimSpace(id)
	if !Known(id) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = id
	return true
}

// SetUserSecret stores an explicit user-entered secret for id. An empty
// secret clears the override, falling back to the environment one.
func (r *Resolver) SetUserSecret(id, secret string) {
	id = strings.TrimSpace(id)
	if !Known(id) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	secret = strings.TrimSpace(secret)
	if secret == "" {
		delete(r.user, id)
		return
	}
	r.user[id] = secret
}

// Secret returns the effective secret for the active provider.
func (r *Resolver) Secret() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.secretLocked(r.active)
}

// SecretFor returns the effective secret for a specific provider.
func (r *Resolver) SecretFor(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.secretLocked(strings.TrimSpace(id))
}

func (r *Resolver) secretLocked(id string) (string, bool) {
	if secret, ok := r.user[id]; ok {
		return secret, true
	}
	if secret, ok := r.env[id]; ok {
		return secret, true
	}
	return "", false
}

// Override pins a provider and secret for a single call without touching
// the stored selection.
type Override struct {
	ProviderID string
	Key        string
}

func (o Override) Active() string {
	return o.ProviderID
}

func (o Override) Secret() (string, bool) {
	if strings.TrimSpace(o.Key) == "" {
		return "", false
	}
	return o.Key, true
}
