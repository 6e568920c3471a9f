package app

import (
	"context"
	"errors"
	"time"

	"citychain/internal/domain"
	"citychain/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Options tunes a Service. Zero values select production defaults.
type Options struct {
	TurnDuration time.Duration
	// SuggestionDistance bounds "did you mean" hints for unknown cities; 0 disables them.
	SuggestionDistance int
	Logger             runtime.Logger
	AfterFunc          AfterFunc
	Now                func() time.Time
	NewID              func() string
}

// Service runs matchmaking, game sessions and rematches.
// Every session is serialized by its own lock; events and stats writes happen after the lock is released.
type Service struct {
	dict    *domain.Dictionary
	stats   ports.StatsPort
	sink    EventSink
	queue   *Queue
	store   *Store
	clock   *Clock
	rematch *Negotiator

	turnDuration       time.Duration
	suggestionDistance int
	logger             runtime.Logger
	now                func() time.Time
}

// NewService wires the game components. dict and stats must be non-nil.
func NewService(dict *domain.Dictionary, stats ports.StatsPort, sink EventSink, opts Options) *Service {
	if opts.TurnDuration <= 0 {
		opts.TurnDuration = DefaultTurnDuration
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		dict:               dict,
		stats:              stats,
		sink:               sink,
		queue:              NewQueue(),
		store:              NewStore(opts.NewID, opts.Now),
		clock:              NewClock(opts.AfterFunc),
		rematch:            NewNegotiator(opts.Now),
		turnDuration:       opts.TurnDuration,
		suggestionDistance: opts.SuggestionDistance,
		logger:             opts.Logger,
		now:                opts.Now,
	}
}

// TurnDuration is the time each player has per move.
func (s *Service) TurnDuration() time.Duration {
	return s.turnDuration
}

// PlayResult describes a matchmaking request. SessionID is set when matched.
type PlayResult struct {
	Status    QueueStatus
	Opponent  string
	SessionID string
}

// Play queues playerID or pairs them with the waiting player, who then moves first.
func (s *Service) Play(ctx context.Context, playerID string) (PlayResult, error) {
	if s.InSession(playerID) {
		return PlayResult{}, ErrAlreadyInSession
	}
	return s.matchOrWait(ctx, playerID)
}

func (s *Service) matchOrWait(ctx context.Context, playerID string) (PlayResult, error) {
	for {
		res := s.queue.TryEnqueueOrMatch(playerID)
		switch res.Status {
		case QueueQueued:
			s.logger.Info("Play: %s is waiting for an opponent", playerID)
			return PlayResult{Status: QueueQueued}, nil
		case QueueAlreadyQueued:
			return PlayResult{Status: QueueAlreadyQueued}, ErrAlreadyQueued
		}

		g, err := s.startGame(ctx, res.Opponent, playerID, res.Opponent)
		if err == nil {
			return PlayResult{Status: QueueMatched, Opponent: res.Opponent, SessionID: g.ID()}, nil
		}
		if !errors.Is(err, ErrAlreadyInSession) {
			return PlayResult{}, err
		}

		// One side joined a rematch while the other was being paired.
		if s.InSession(playerID) {
			if !s.InSession(res.Opponent) {
				if _, err := s.matchOrWait(ctx, res.Opponent); err != nil {
					s.logger.Warn("Play: failed to requeue %s: %v", res.Opponent, err)
				}
			}
			return PlayResult{}, ErrAlreadyInSession
		}
		s.logger.Info("Play: waiting player %s is already in a game, retrying for %s", res.Opponent, playerID)
	}
}

// Leave removes playerID from the matchmaking queue.
func (s *Service) Leave(playerID string) bool {
	removed := s.queue.Leave(playerID)
	if removed {
		s.logger.Info("Leave: %s left the queue", playerID)
	}
	return removed
}

// InSession reports whether playerID has an active game.
func (s *Service) InSession(playerID string) bool {
	_, ok := s.store.Get(playerID)
	return ok
}

// ActiveSession returns a copy of playerID's current game state.
func (s *Service) ActiveSession(playerID string) (domain.Session, bool) {
	g, ok := s.store.Get(playerID)
	if !ok {
		return domain.Session{}, false
	}
	return g.Snapshot(), true
}

func (s *Service) startGame(ctx context.Context, p1, p2, firstMover string) (*Game, error) {
	g, err := s.store.Create(p1, p2, firstMover)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	opening := !g.ended && g.session.MoveCount == 0
	if opening {
		s.scheduleTurnLocked(g)
	}
	pair := g.session.Pair()
	g.mu.Unlock()

	seconds := turnSeconds(s.turnDuration)
	s.logger.Info("StartGame: %s started, %s moves first against %s", g.ID(), pair.First, pair.Second)
	s.publish(ctx, Event{
		Kind:       EventGameStarted,
		Payload:    GameStartedPayload{SessionID: g.ID(), Pair: pair, TurnSeconds: seconds},
		Recipients: []string{pair.First, pair.Second},
	})
	if opening {
		s.publish(ctx, Event{
			Kind:       EventYourTurn,
			Payload:    YourTurnPayload{SessionID: g.ID(), RequiredLetter: domain.NoLetter, TurnSeconds: seconds},
			Recipients: []string{pair.First},
		})
	}
	return g, nil
}

// MoveResult describes an accepted move. Ended is set when the move exhausted the dictionary.
type MoveResult struct {
	SessionID  string
	Word       string
	NextLetter rune
	Ended      bool
}

// SubmitMove validates and applies rawWord as playerID's move.
// Validation errors from the domain package leave the session unchanged.
func (s *Service) SubmitMove(ctx context.Context, playerID, rawWord string) (MoveResult, error) {
	g, ok := s.store.Get(playerID)
	if !ok {
		return MoveResult{}, ErrNotInSession
	}

	g.mu.Lock()
	if g.ended {
		g.mu.Unlock()
		return MoveResult{}, ErrNotInSession
	}
	move, err := g.session.ApplyMove(s.dict, playerID, rawWord)
	if err != nil {
		g.mu.Unlock()
		s.logger.Debug("SubmitMove: rejected %q from %s: %v", rawWord, playerID, err)
		return MoveResult{}, s.withSuggestion(err)
	}

	s.clock.Cancel(g.session.ID)
	opponent := g.session.Turn
	res := MoveResult{SessionID: g.session.ID, Word: move.Word, NextLetter: move.NextLetter}

	var out domain.Outcome
	if move.NextLetter != domain.NoLetter && !s.dict.HasUnused(move.NextLetter, g.session.UsedWords) {
		out = s.endLocked(g, "", domain.ReasonExhausted)
		res.Ended = true
	} else {
		s.scheduleTurnLocked(g)
	}
	g.mu.Unlock()

	s.publish(ctx, Event{
		Kind:       EventMoveAccepted,
		Payload:    MoveAcceptedPayload{SessionID: res.SessionID, Word: move.Word, NextLetter: move.NextLetter},
		Recipients: []string{playerID},
	})
	if res.Ended {
		s.logger.Info("SubmitMove: %s ended in a draw, no cities left on %q", res.SessionID, move.NextLetter)
		s.finish(ctx, out)
		return res, nil
	}
	s.publish(ctx, Event{
		Kind: EventYourTurn,
		Payload: YourTurnPayload{
			SessionID:      res.SessionID,
			OpponentWord:   move.Word,
			RequiredLetter: move.NextLetter,
			TurnSeconds:    turnSeconds(s.turnDuration),
		},
		Recipients: []string{opponent},
	})
	return res, nil
}

func (s *Service) withSuggestion(err error) error {
	var unknown *domain.UnknownCityError
	if s.suggestionDistance > 0 && errors.As(err, &unknown) {
		if city, ok := s.dict.Suggest(unknown.Word, s.suggestionDistance); ok {
			unknown.Suggestion = city
		}
	}
	return err
}

// Surrender ends playerID's game as a loss.
func (s *Service) Surrender(ctx context.Context, playerID string) (domain.Outcome, error) {
	return s.Forfeit(ctx, playerID, domain.ReasonSurrendered)
}

// Forfeit ends loserID's game with the opponent as winner.
func (s *Service) Forfeit(ctx context.Context, loserID string, reason domain.EndReason) (domain.Outcome, error) {
	g, ok := s.store.Get(loserID)
	if !ok {
		return domain.Outcome{}, ErrNotInSession
	}

	g.mu.Lock()
	if g.ended {
		g.mu.Unlock()
		return domain.Outcome{}, ErrNotInSession
	}
	out := s.endLocked(g, loserID, reason)
	g.mu.Unlock()

	s.logger.Info("Forfeit: %s lost %s (%s)", loserID, out.SessionID, reason)
	s.finish(ctx, out)
	return out, nil
}

// scheduleTurnLocked starts the clock for the current mover. g.mu must be held.
func (s *Service) scheduleTurnLocked(g *Game) {
	mover, token := g.session.Turn, g.session.MoveCount
	s.clock.Schedule(g.session.ID, mover, s.turnDuration, func() {
		s.expireTurn(g, mover, token)
	})
}

// expireTurn forfeits mover unless a move or termination got the lock first.
func (s *Service) expireTurn(g *Game, mover string, token int) {
	g.mu.Lock()
	if g.ended || g.session.Turn != mover || g.session.MoveCount != token {
		g.mu.Unlock()
		s.logger.Debug("TurnClock: stale expiry for %s in %s ignored", mover, g.ID())
		return
	}
	out := s.endLocked(g, mover, domain.ReasonTimedOut)
	g.mu.Unlock()

	s.logger.Info("TurnClock: %s timed out in %s", mover, out.SessionID)
	s.finish(context.Background(), out)
}

// endLocked makes the session terminal. An empty loser means a draw. g.mu must be held.
func (s *Service) endLocked(g *Game, loser string, reason domain.EndReason) domain.Outcome {
	sess := g.session
	g.ended = true
	s.clock.Cancel(sess.ID)
	s.store.Remove(sess.ID)

	out := domain.Outcome{
		SessionID: sess.ID,
		Pair:      sess.Pair(),
		Reason:    reason,
		Moves:     sess.MoveCount,
		Duration:  s.now().Sub(sess.StartedAt),
	}
	if loser == "" {
		out.Draw = true
	} else {
		out.Loser = loser
		out.Winner = sess.Opponent(loser)
	}
	return out
}

// finish runs the side effects of a terminal outcome. Failures are logged, never returned.
func (s *Service) finish(ctx context.Context, out domain.Outcome) {
	players := out.Players()
	s.publish(ctx, Event{
		Kind:       EventGameEnded,
		Payload:    GameEndedPayload{Outcome: out, TurnSeconds: turnSeconds(s.turnDuration)},
		Recipients: players,
	})

	if out.Draw {
		for _, p := range players {
			s.resetStreak(ctx, p)
		}
	} else {
		if err := s.stats.RecordWin(ctx, out.Winner); err != nil {
			s.logger.Warn("Finish: failed to record win for %s: %v", out.Winner, err)
		}
		s.resetStreak(ctx, out.Loser)
	}

	s.publish(ctx, Event{
		Kind:       EventRematchOffered,
		Payload:    RematchOfferedPayload{Pair: out.Pair},
		Recipients: players,
	})
}

func (s *Service) resetStreak(ctx context.Context, playerID string) {
	if err := s.stats.ResetStreak(ctx, playerID); err != nil {
		s.logger.Warn("Finish: failed to reset streak for %s: %v", playerID, err)
	}
}

// RematchResult describes a consent toggle.
type RematchResult struct {
	Consenting bool
	Started    bool
	Aborted    bool
	SessionID  string
}

// Rematch toggles playerID's consent to replay pair. When both have consented a
// new game starts with the same first mover, unless either player is busy.
func (s *Service) Rematch(ctx context.Context, pair domain.Pair, playerID string) (RematchResult, error) {
	res, err := s.rematch.Consent(pair, playerID)
	if err != nil {
		return RematchResult{}, err
	}

	if !res.Complete {
		s.logger.Info("Rematch: %s consenting=%v for %s", playerID, res.Consenting, res.Pair.Key())
		s.publish(ctx, Event{
			Kind:       EventRematchUpdated,
			Payload:    RematchUpdatedPayload{From: playerID, Consenting: res.Consenting},
			Recipients: []string{res.Pair.Other(playerID)},
		})
		return RematchResult{Consenting: res.Consenting}, nil
	}

	first, second := res.Pair.First, res.Pair.Second
	if s.InSession(first) || s.InSession(second) {
		return s.abortRematch(ctx, res.Pair), nil
	}

	g, err := s.startGame(ctx, first, second, first)
	if errors.Is(err, ErrAlreadyInSession) {
		return s.abortRematch(ctx, res.Pair), nil
	}
	if err != nil {
		return RematchResult{}, err
	}
	s.queue.Leave(first)
	s.queue.Leave(second)
	return RematchResult{Consenting: true, Started: true, SessionID: g.ID()}, nil
}

func (s *Service) abortRematch(ctx context.Context, pair domain.Pair) RematchResult {
	s.logger.Info("Rematch: %s aborted, a player is already in a game", pair.Key())
	s.publish(ctx, Event{
		Kind:       EventRematchAborted,
		Payload:    RematchAbortedPayload{Pair: pair},
		Recipients: []string{pair.First, pair.Second},
	})
	return RematchResult{Consenting: true, Aborted: true}
}

// CancelRematch withdraws every consent of playerID and notifies the counterparts.
func (s *Service) CancelRematch(ctx context.Context, playerID string) []string {
	others := s.rematch.WithdrawAll(playerID)
	for _, other := range others {
		s.publish(ctx, Event{
			Kind:       EventRematchWithdrawn,
			Payload:    RematchWithdrawnPayload{From: playerID},
			Recipients: []string{other},
		})
	}
	return others
}

// PruneRematchOffers drops consents idle for longer than ttl.
func (s *Service) PruneRematchOffers(ttl time.Duration) int {
	pruned := s.rematch.Prune(s.now().Add(-ttl))
	for _, p := range pruned {
		s.logger.Info("Rematch: expired offer for %s", p.Key())
	}
	return len(pruned)
}

// MaintainRematchOffers prunes idle offers every interval until ctx is done.
func (s *Service) MaintainRematchOffers(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PruneRematchOffers(ttl)
		}
	}
}

// Close stops all pending turn clocks.
func (s *Service) Close() {
	s.clock.StopAll()
}

func (s *Service) publish(ctx context.Context, ev Event) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, ev); err != nil {
		s.logger.Warn("Publish: failed to deliver %s to %v: %v", ev.Kind, ev.Recipients, err)
	}
}
