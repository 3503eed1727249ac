package tracking

import (
	"iter"
	"sync"
	"time"

	perr "crossposter/internal/platform/errors"
)

// Registry errors
var (
	ErrDuplicateID = perr.New(perr.ErrorCodeDuplicateKey, "post already tracked")
	ErrNotFound    = perr.New(perr.ErrorCodeNotFound, "post not tracked")
)

type entry struct {
	mu   sync.Mutex
	post Post
	gone bool
}

// Registry owns every tracked post
// The map lock is only held for map access; each post has its own lock
type Registry struct {
	mu      sync.RWMutex
	posts   map[string]*entry
	prompts map[string]string
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		posts:   map[string]*entry{},
		prompts: map[string]string{},
	}
}

// Create tracks a new Pending post
// Both the id and the prompt id must be unused
func (r *Registry) Create(id, promptID, conversation string, content Content, now time.Time) (Snapshot, error) {
	if id == "" || promptID == "" {
		return Snapshot{}, perr.InvalidArgf("id and prompt id are required")
	}
	e := &entry{post: Post{
		ID:           id,
		PromptID:     promptID,
		Conversation: conversation,
		Content:      content,
		CreatedAt:    now,
		State:        Pending,
		approvals:    map[string]struct{}{},
	}}
	if content.Media != nil {
		m := *content.Media
		e.post.Content.Media = &m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; ok {
		return Snapshot{}, perr.WithField(perr.Wrap(ErrDuplicateID, perr.ErrorCodeDuplicateKey, "id in use"), "id")
	}
	if _, ok := r.prompts[promptID]; ok {
		return Snapshot{}, perr.WithField(perr.Wrap(ErrDuplicateID, perr.ErrorCodeDuplicateKey, "prompt id in use"), "prompt_id")
	}
	r.posts[id] = e
	r.prompts[promptID] = id
	return e.post.Snapshot(), nil
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.posts[id]
	return e, ok
}

// Get returns a snapshot of the post
func (r *Registry) Get(id string) (Snapshot, error) {
	e, ok := r.lookup(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return Snapshot{}, ErrNotFound
	}
	return e.post.Snapshot(), nil
}

// ResolvePrompt maps a prompt id to its post id
func (r *Registry) ResolvePrompt(promptID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.prompts[promptID]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

// Update runs fn on the post under its own lock
// fn's error is returned as is; a post removed while waiting for the lock is ErrNotFound
func (r *Registry) Update(id string, fn func(*Post) error) error {
	e, ok := r.lookup(id)
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone {
		return ErrNotFound
	}
	return fn(&e.post)
}

// Remove drops the post and its prompt mapping; unknown ids are ignored
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.posts[id]
	if ok {
		delete(r.posts, id)
		if r.prompts[e.post.PromptID] == id {
			delete(r.prompts, e.post.PromptID)
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.gone = true
	e.mu.Unlock()
}

// RemoveIf removes the post when drop returns true under the post lock
// It reports whether the post was removed
func (r *Registry) RemoveIf(id string, drop func(*Post) bool) bool {
	e, ok := r.lookup(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	if e.gone || !drop(&e.post) {
		e.mu.Unlock()
		return false
	}
	e.gone = true
	promptID := e.post.PromptID
	e.mu.Unlock()

	r.mu.Lock()
	if cur, ok := r.posts[id]; ok && cur == e {
		delete(r.posts, id)
	}
	if r.prompts[promptID] == id {
		delete(r.prompts, promptID)
	}
	r.mu.Unlock()
	return true
}

// All yields a snapshot of every post tracked when iteration starts
// Each element is copied under its post lock; posts removed mid iteration are skipped
func (r *Registry) All() iter.Seq[Snapshot] {
	return func(yield func(Snapshot) bool) {
		r.mu.RLock()
		entries := make([]*entry, 0, len(r.posts))
		for _, e := range r.posts {
			entries = append(entries, e)
		}
		r.mu.RUnlock()

		for _, e := range entries {
			e.mu.Lock()
			gone := e.gone
			s := e.post.Snapshot()
			e.mu.Unlock()
			if gone {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Len is the number of tracked posts
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.posts)
}
