// Package application holds the local leaderboard projection: a ranked
// in-memory view fed by push updates, so reads never hit the remote store.
package application

import (
	"sort"
	"sync"
)

// DefaultWindow is how many top entries a read returns by default.
const DefaultWindow = 50

// Entry is one participant's mirrored score.
type Entry struct {
	UserID      string
	DisplayName string
	Username    string
	Coins       int
	TotalTaps   int
}

// Standing is an entry with its 1-based position under coins-descending
// order. Ties keep first-seen order, so a participant never loses a place
// to a later arrival with equal coins.
type Standing struct {
	Position int
	Entry    Entry
}

// Projector is the concurrent ranked view. Upserts replace by user id;
// rank positions are recomputed on read.
type Projector struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string // first-seen order, breaks coin ties
}

func NewProjector() *Projector {
	return &Projector{entries: make(map[string]Entry)}
}

// Upsert inserts or replaces the entry for its user id.
func (p *Projector) Upsert(entry Entry) {
	if entry.UserID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.entries[entry.UserID]; !ok {
		p.order = append(p.order, entry.UserID)
	}
	p.entries[entry.UserID] = entry
}

// Top returns the first limit standings by coins descending.
func (p *Projector) Top(limit int) []Standing {
	if limit <= 0 {
		limit = DefaultWindow
	}
	standings := p.ranked()
	if len(standings) > limit {
		standings = standings[:limit]
	}
	return standings
}

// StandingOf returns the viewer's standing even when it falls outside the
// top window.
func (p *Projector) StandingOf(userID string) (Standing, bool) {
	for _, standing := range p.ranked() {
		if standing.Entry.UserID == userID {
			return standing, true
		}
	}
	return Standing{}, false
}

// Len reports the number of tracked participants.
func (p *Projector) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

func (p *Projector) ranked() []Standing {
	p.mu.RLock()
	entries := make([]Entry, 0, len(p.entries))
	for _, userID := range p.order {
		entries = append(entries, p.entries[userID])
	}
	p.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Coins > entries[j].Coins
	})
	standings := make([]Standing, 0, len(entries))
	for i, entry := range entries {
		standings = append(standings, Standing{Position: i + 1, Entry: entry})
	}
	return standings
}
