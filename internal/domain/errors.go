package domain

import (
	"errors"
	"fmt"
)

// Move validation failures. The session is left untouched when any of these is returned.
var (
	ErrNotYourTurn = errors.New("not your turn")
	ErrInvalidWord = errors.New("invalid word")
	ErrUnknownCity = errors.New("unknown city")
	ErrAlreadyUsed = errors.New("city already used")
	ErrWrongLetter = errors.New("wrong first letter")
)

// WrongLetterError carries the letter the move had to start with.
type WrongLetterError struct {
	Required rune
}

func (e *WrongLetterError) Error() string {
	return fmt.Sprintf("%v: city must start with %q", ErrWrongLetter, e.Required)
}

func (e *WrongLetterError) Unwrap() error { return ErrWrongLetter }

// UnknownCityError carries a close dictionary match, if one was found.
type UnknownCityError struct {
	Word       string
	Suggestion string
}

func (e *UnknownCityError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("%v: %q", ErrUnknownCity, e.Word)
	}
	return fmt.Sprintf("%v: %q (did you mean %q?)", ErrUnknownCity, e.Word, e.Suggestion)
}

func (e *UnknownCityError) Unwrap() error { return ErrUnknownCity }

// IsValidationError reports whether err rejects a move without changing state.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrInvalidWord) ||
		errors.Is(err, ErrUnknownCity) ||
		errors.Is(err, ErrAlreadyUsed) ||
		errors.Is(err, ErrWrongLetter)
}
