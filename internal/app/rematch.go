package app

import (
	"sort"
	"sync"
	"time"

	"citychain/internal/domain"
)

// ConsentResult is the state of an offer after a consent toggle.
type ConsentResult struct {
	Pair       domain.Pair
	Consenting bool // whether the caller is now consenting
	Complete   bool // both players consented; the offer has been cleared
}

type offer struct {
	pair     domain.Pair
	consents map[string]struct{}
	touched  time.Time
}

// Negotiator tracks rematch consents per unordered pair.
type Negotiator struct {
	mu     sync.Mutex
	offers map[domain.PairKey]*offer
	now    func() time.Time
}

func NewNegotiator(now func() time.Time) *Negotiator {
	if now == nil {
		now = time.Now
	}
	return &Negotiator{
		offers: make(map[domain.PairKey]*offer),
		now:    now,
	}
}

// Consent toggles playerID's consent for pair.
// The first consent fixes which player moves first in the rematch.
func (n *Negotiator) Consent(pair domain.Pair, playerID string) (ConsentResult, error) {
	if !pair.Has(playerID) || pair.First == pair.Second {
		return ConsentResult{}, ErrNotInPair
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	key := pair.Key()
	o, ok := n.offers[key]
	if !ok {
		o = &offer{pair: pair, consents: make(map[string]struct{}, 2)}
		n.offers[key] = o
	}
	o.touched = n.now()

	if _, consenting := o.consents[playerID]; consenting {
		delete(o.consents, playerID)
		if len(o.consents) == 0 {
			delete(n.offers, key)
		}
		return ConsentResult{Pair: o.pair, Consenting: false}, nil
	}

	o.consents[playerID] = struct{}{}
	if len(o.consents) == 2 {
		delete(n.offers, key)
		return ConsentResult{Pair: o.pair, Consenting: true, Complete: true}, nil
	}
	return ConsentResult{Pair: o.pair, Consenting: true}, nil
}

// WithdrawAll removes playerID from every offer and returns the counterparts, sorted.
func (n *Negotiator) WithdrawAll(playerID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var others []string
	for key, o := range n.offers {
		if _, consenting := o.consents[playerID]; !consenting {
			continue
		}
		delete(o.consents, playerID)
		if len(o.consents) == 0 {
			delete(n.offers, key)
		}
		others = append(others, o.pair.Other(playerID))
	}
	sort.Strings(others)
	return others
}

// Prune drops offers untouched since before cutoff and returns their pairs.
func (n *Negotiator) Prune(cutoff time.Time) []domain.Pair {
	n.mu.Lock()
	defer n.mu.Unlock()

	var pruned []domain.Pair
	for key, o := range n.offers {
		if o.touched.Before(cutoff) {
			delete(n.offers, key)
			pruned = append(pruned, o.pair)
		}
	}
	return pruned
}

// Len returns the number of open offers.
func (n *Negotiator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.offers)
}
