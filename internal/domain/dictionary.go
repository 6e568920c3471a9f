package domain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var ErrEmptyDictionary = errors.New("city dictionary is empty")

// Dictionary is the immutable set of normalized city names.
type Dictionary struct {
	cities  map[string]struct{}
	byFirst map[rune][]string
}

// NewDictionary normalizes names and drops blanks and duplicates.
func NewDictionary(names []string) *Dictionary {
	d := &Dictionary{
		cities:  make(map[string]struct{}, len(names)),
		byFirst: make(map[rune][]string),
	}
	for _, name := range names {
		city := Normalize(name)
		if city == "" {
			continue
		}
		if _, dup := d.cities[city]; dup {
			continue
		}
		d.cities[city] = struct{}{}
		if first, ok := FirstLetter(city); ok {
			d.byFirst[first] = append(d.byFirst[first], city)
		}
	}
	for _, list := range d.byFirst {
		sort.Strings(list)
	}
	return d
}

// LoadDictionary reads one city per line from r. Lines starting with '#' are comments.
func LoadDictionary(r io.Reader) (*Dictionary, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read city list: %w", err)
	}

	d := NewDictionary(names)
	if d.Len() == 0 {
		return nil, ErrEmptyDictionary
	}
	return d, nil
}

// LoadDictionaryFile reads a UTF-8 city list from path.
func LoadDictionaryFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open city list: %w", err)
	}
	defer f.Close()
	return LoadDictionary(f)
}

// Contains expects an already normalized name.
func (d *Dictionary) Contains(city string) bool {
	_, ok := d.cities[city]
	return ok
}

func (d *Dictionary) Len() int {
	return len(d.cities)
}

// HasUnused reports whether any city starting with letter is absent from used.
func (d *Dictionary) HasUnused(letter rune, used map[string]struct{}) bool {
	for _, city := range d.byFirst[letter] {
		if _, taken := used[city]; !taken {
			return true
		}
	}
	return false
}

// Suggest returns the closest known city within maxDistance edits of word.
// Ties resolve to the alphabetically first city.
func (d *Dictionary) Suggest(word string, maxDistance int) (string, bool) {
	if word == "" || maxDistance <= 0 {
		return "", false
	}
	wordLen := utf8.RuneCountInString(word)

	best, bestDist := "", maxDistance+1
	for city := range d.cities {
		diff := utf8.RuneCountInString(city) - wordLen
		if diff > maxDistance || -diff > maxDistance {
			continue
		}
		dist := levenshtein.ComputeDistance(word, city)
		if dist < bestDist || (dist == bestDist && city < best) {
			best, bestDist = city, dist
		}
	}
	if bestDist > maxDistance {
		return "", false
	}
	return best, true
}
