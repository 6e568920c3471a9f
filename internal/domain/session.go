package domain

import (
	"strings"
	"time"
)

// PairKey identifies an unordered pair of players.
type PairKey string

// NewPairKey is symmetric: NewPairKey(a, b) == NewPairKey(b, a).
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey(a + "|" + b)
}

// Pair is two former or current opponents. First moved first in their last game.
type Pair struct {
	First  string
	Second string
}

func (p Pair) Key() PairKey {
	return NewPairKey(p.First, p.Second)
}

func (p Pair) Has(playerID string) bool {
	return playerID != "" && (playerID == p.First || playerID == p.Second)
}

// Other returns the opposite member, or "" when playerID is not in the pair.
func (p Pair) Other(playerID string) string {
	switch playerID {
	case p.First:
		return p.Second
	case p.Second:
		return p.First
	default:
		return ""
	}
}

// CityLookup is the read side of the dictionary used by move validation.
type CityLookup interface {
	Contains(city string) bool
}

// Move is an accepted city.
type Move struct {
	PlayerID   string
	Word       string
	NextLetter rune // NoLetter when the word leaves the next move unconstrained
}

// Session is the state of one two-player game.
type Session struct {
	ID         string
	Players    [2]string
	FirstMover string
	Turn       string
	LastLetter rune
	UsedWords  map[string]struct{}
	LastMove   *Move
	MoveCount  int
	StartedAt  time.Time
}

// NewSession creates a session between p1 and p2 where firstMover plays first.
// firstMover falls back to p1 when it is not one of the players.
func NewSession(id, p1, p2, firstMover string, startedAt time.Time) *Session {
	if firstMover != p1 && firstMover != p2 {
		firstMover = p1
	}
	return &Session{
		ID:         id,
		Players:    [2]string{p1, p2},
		FirstMover: firstMover,
		Turn:       firstMover,
		LastLetter: NoLetter,
		UsedWords:  make(map[string]struct{}),
		StartedAt:  startedAt,
	}
}

func (s *Session) Key() PairKey {
	return NewPairKey(s.Players[0], s.Players[1])
}

// Pair returns the players ordered by who moved first.
func (s *Session) Pair() Pair {
	return Pair{First: s.FirstMover, Second: s.Opponent(s.FirstMover)}
}

func (s *Session) Has(playerID string) bool {
	return playerID == s.Players[0] || playerID == s.Players[1]
}

// Opponent returns the other player, or "" for a non-member.
func (s *Session) Opponent(playerID string) string {
	switch playerID {
	case s.Players[0]:
		return s.Players[1]
	case s.Players[1]:
		return s.Players[0]
	default:
		return ""
	}
}

// ApplyMove validates raw as playerID's move and applies it on success.
// Checks run in order: turn, emptiness, dictionary, repetition, first letter.
func (s *Session) ApplyMove(cities CityLookup, playerID, raw string) (Move, error) {
	if playerID != s.Turn {
		return Move{}, ErrNotYourTurn
	}

	word := Normalize(raw)
	if word == "" {
		return Move{}, ErrInvalidWord
	}
	if !cities.Contains(word) {
		return Move{}, &UnknownCityError{Word: word}
	}
	if _, used := s.UsedWords[word]; used {
		return Move{}, ErrAlreadyUsed
	}
	if s.LastLetter != NoLetter {
		if first, _ := FirstLetter(word); first != s.LastLetter {
			return Move{}, &WrongLetterError{Required: s.LastLetter}
		}
	}

	next, _ := EffectiveLastLetter(word)
	move := Move{PlayerID: playerID, Word: word, NextLetter: next}

	s.UsedWords[word] = struct{}{}
	s.MoveCount++
	s.LastLetter = next
	s.LastMove = &move
	s.Turn = s.Opponent(playerID)
	return move, nil
}

// DisplayLetter renders a required letter for players.
func DisplayLetter(r rune) string {
	if r == NoLetter {
		return "?"
	}
	return strings.ToUpper(string(r))
}
