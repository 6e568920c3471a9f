package app

import (
	"sync"
	"time"

	"citychain/internal/domain"

	"github.com/google/uuid"
)

// Game guards one session. All reads and writes of session go through mu.
type Game struct {
	mu      sync.Mutex
	session *domain.Session
	ended   bool
}

// ID is immutable and safe to read without the lock.
func (g *Game) ID() string {
	return g.session.ID
}

// Snapshot returns a copy of the session state.
func (g *Game) Snapshot() domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := *g.session
	s.UsedWords = make(map[string]struct{}, len(g.session.UsedWords))
	for w := range g.session.UsedWords {
		s.UsedWords[w] = struct{}{}
	}
	if g.session.LastMove != nil {
		m := *g.session.LastMove
		s.LastMove = &m
	}
	return s
}

// Store indexes active games by id, by unordered pair and by player.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]*Game
	byPair   map[domain.PairKey]*Game
	byPlayer map[string]*Game

	newID func() string
	now   func() time.Time
}

// NewStore builds an empty store. newID and now may be nil.
func NewStore(newID func() string, now func() time.Time) *Store {
	if newID == nil {
		newID = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		byID:     make(map[string]*Game),
		byPair:   make(map[domain.PairKey]*Game),
		byPlayer: make(map[string]*Game),
		newID:    newID,
		now:      now,
	}
}

// Create registers a session between p1 and p2. It fails with ErrAlreadyInSession
// when either player already has one.
func (s *Store) Create(p1, p2, firstMover string) (*Game, error) {
	if p1 == "" || p2 == "" || p1 == p2 {
		return nil, ErrInvalidPlayers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.byPlayer[p1]; busy {
		return nil, ErrAlreadyInSession
	}
	if _, busy := s.byPlayer[p2]; busy {
		return nil, ErrAlreadyInSession
	}

	g := &Game{session: domain.NewSession(s.newID(), p1, p2, firstMover, s.now())}
	s.byID[g.ID()] = g
	s.byPair[g.session.Key()] = g
	s.byPlayer[p1] = g
	s.byPlayer[p2] = g
	return g, nil
}

// Get returns the active game of playerID.
func (s *Store) Get(playerID string) (*Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.byPlayer[playerID]
	return g, ok
}

// GetPair returns the active game between a and b.
func (s *Store) GetPair(a, b string) (*Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.byPair[domain.NewPairKey(a, b)]
	return g, ok
}

// Remove drops a game and its reverse lookups. Unknown ids are ignored.
func (s *Store) Remove(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.byID[sessionID]
	if !ok {
		return false
	}
	delete(s.byID, sessionID)
	key := g.session.Key()
	if s.byPair[key] == g {
		delete(s.byPair, key)
	}
	for _, p := range g.session.Players {
		if s.byPlayer[p] == g {
			delete(s.byPlayer, p)
		}
	}
	return true
}

// Len returns the number of active games.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
