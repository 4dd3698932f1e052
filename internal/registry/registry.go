// Package registry implements the process-wide client (nickname)
// registry: a single trie guarded by one exclusive lock, offering the
// atomic find-and-apply primitive that the rest of the daemon relies on
// to avoid a lookup/act TOCTOU window.
package registry

import (
	"errors"
	"sync"

	"github.com/foxcpp/scandicd/internal/nickcodec"
	"github.com/foxcpp/scandicd/internal/trie"
)

// Errors returned by Add.
var (
	ErrInvalidNick   = errors.New("registry: nickname contains characters outside the permitted alphabet")
	ErrAlreadyExists = errors.New("registry: nickname already registered")
)

var nickCodec = trie.Codec{
	IsValid:  nickcodec.IsValid,
	CharToID: nickcodec.CharToID,
	IDToChar: nickcodec.IDToChar,
	Size:     nickcodec.Size,
}

// Client is the minimal view the registry needs of a connection record.
// internal/conn.Record satisfies this.
type Client interface {
	Nick() string
}

// Registry is the single process-wide nickname -> client map. The zero
// value is not usable; construct with New.
type Registry struct {
	mu sync.Mutex
	t  *trie.Trie[Client]
}

// New constructs an empty registry. Call exactly once from the
// bootstrap, before any worker starts.
func New() *Registry {
	return &Registry{t: trie.New[Client](nickCodec)}
}

// Destroy releases the registry's internal state. Call exactly once,
// after every worker has exited.
func (r *Registry) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t = trie.New[Client](nickCodec)
}

// Add registers client under nickname, atomically. It does not mutate
// the client itself; callers are expected to set the client's own
// nickname field only after Add succeeds.
func (r *Registry) Add(client Client, nickname string) error {
	if nickname == "" {
		return ErrInvalidNick
	}
	if len(nickname) > MaxNickLength {
		return ErrInvalidNick
	}

	canon := nickcodec.Canonical(nickname)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.t.Lookup(canon); ok {
		return ErrAlreadyExists
	}

	if err := r.t.Insert(canon, client); err != nil {
		return ErrInvalidNick
	}
	return nil
}

// Delete removes whatever client is registered under nickname. It is
// idempotent: deleting an absent nickname is not an error.
func (r *Registry) Delete(nickname string) {
	canon := nickcodec.Canonical(nickname)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.Remove(canon)
}

// FindAndApply looks up nickname and, if present, invokes fn with the
// registered client while still holding the registry's exclusive lock.
// calledOut reports whether fn was invoked, i.e. whether nickname was
// registered at the time of the call.
//
// fn must not block on any lock a registry caller might hold, must not
// call Add/Delete/FindAndApply itself (that would deadlock on r.mu), and
// must not terminate the calling goroutine while holding the lock.
// Violating this contract is a programming bug, not a runtime error.
func (r *Registry) FindAndApply(nickname string, fn func(Client)) (calledOut bool) {
	canon := nickcodec.Canonical(nickname)

	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.t.Lookup(canon)
	if !ok {
		return false
	}
	fn(client)
	return true
}

// MaxNickLength is the longest nickname the registry will accept,
// per spec.md §3/§6.
const MaxNickLength = 9
