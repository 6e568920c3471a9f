package nakama

import (
	"errors"
	"fmt"
	"time"

	"citychain/internal/domain"

	"github.com/form3tech-oss/jwt-go"
)

const ticketIssuer = "citychain"

// ErrInvalidTicket is returned for tickets that are malformed or signed with another key.
var ErrInvalidTicket = errors.New("invalid rematch ticket")

// RematchTickets signs the pair of a finished game so either player can ask
// for a rematch later without the server keeping the pair around.
// Tickets carry no expiry; idle consents are pruned by the negotiator.
type RematchTickets struct {
	secret []byte
	now    func() time.Time
}

func NewRematchTickets(secret string) *RematchTickets {
	return &RematchTickets{secret: []byte(secret), now: time.Now}
}

// Issue returns an HS256 token naming the pair; p1 is the first mover.
func (t *RematchTickets) Issue(pair domain.Pair) (string, error) {
	if pair.First == "" || pair.Second == "" || pair.First == pair.Second {
		return "", fmt.Errorf("%w: bad pair %q/%q", ErrInvalidTicket, pair.First, pair.Second)
	}
	claims := jwt.MapClaims{
		"iss": ticketIssuer,
		"p1":  pair.First,
		"p2":  pair.Second,
		"iat": t.now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify checks the signature and issuer and returns the pair.
func (t *RematchTickets) Verify(raw string) (domain.Pair, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return domain.Pair{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return domain.Pair{}, ErrInvalidTicket
	}
	if !claims.VerifyIssuer(ticketIssuer, true) {
		return domain.Pair{}, fmt.Errorf("%w: issuer", ErrInvalidTicket)
	}
	p1, _ := claims["p1"].(string)
	p2, _ := claims["p2"].(string)
	if p1 == "" || p2 == "" || p1 == p2 {
		return domain.Pair{}, fmt.Errorf("%w: players", ErrInvalidTicket)
	}
	return domain.Pair{First: p1, Second: p2}, nil
}
