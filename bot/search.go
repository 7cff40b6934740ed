package bot

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrEmptyTerm = errors.New("search term is empty")

// SearchTracker holds the live search of each sender. It lives in memory only:
// a restart drops every active search. Matching walks all entries, so the cost
// per group event grows with the number of active searches.
type SearchTracker struct {
	mu    sync.RWMutex
	terms map[string]string
}

// Match is one active search hit by a group message.
type Match struct {
	Sender string
	Term   string
}

func NewSearchTracker() *SearchTracker {
	return &SearchTracker{terms: map[string]string{}}
}

// Start sets sender's search term, replacing any previous one.
func (t *SearchTracker) Start(sender, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return ErrEmptyTerm
	}
	t.mu.Lock()
	t.terms[sender] = term
	t.mu.Unlock()
	return nil
}

// Stop removes sender's search and reports whether there was one.
func (t *SearchTracker) Stop(sender string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.terms[sender]
	delete(t.terms, sender)
	return ok
}

func (t *SearchTracker) Term(sender string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	term, ok := t.terms[sender]
	return term, ok
}

func (t *SearchTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.terms)
}

// Match returns the searches whose term prefixes the trimmed text (case-sensitive).
func (t *SearchTracker) Match(text string) []Match {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	t.mu.RLock()
	var out []Match
	for sender, term := range t.terms {
		if strings.HasPrefix(text, term) {
			out = append(out, Match{Sender: sender, Term: term})
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Sender < out[j].Sender })
	return out
}
