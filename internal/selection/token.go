package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lunemusic/internal/domain"
)

var ErrMalformedToken = errors.New("malformed selection token")

type Kind int

const (
	KindPlay Kind = iota + 1
	KindPage
	KindCancel
)

const (
	playPrefix = "play"
	pagePrefix = "page"
	cancelData = "cancel_search"
	separator  = "|"
)

// Token is a decoded callback payload from a search listing.
type Token struct {
	Kind   Kind
	Origin domain.Origin
	ID     string
	Page   int
}

func Play(origin domain.Origin, id string) Token {
	return Token{Kind: KindPlay, Origin: origin, ID: id}
}

func PageTo(page int) Token {
	return Token{Kind: KindPage, Page: page}
}

func Cancel() Token {
	return Token{Kind: KindCancel}
}

// IsListingData reports whether data belongs to a search listing rather than
// to another inline keyboard.
func IsListingData(data string) bool {
	return data == cancelData ||
		strings.HasPrefix(data, playPrefix+separator) ||
		strings.HasPrefix(data, pagePrefix+separator)
}

// Parse decodes callback data. A play token with a missing or placeholder id
// decodes successfully; HasValidID reports it.
func Parse(data string) (Token, error) {
	if data == cancelData {
		return Cancel(), nil
	}
	parts := strings.Split(data, separator)
	switch parts[0] {
	case playPrefix:
		if len(parts) != 3 {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformedToken, data)
		}
		origin := domain.Origin(parts[1])
		if !origin.Valid() {
			return Token{}, fmt.Errorf("%w: unknown origin %q", ErrMalformedToken, parts[1])
		}
		return Play(origin, parts[2]), nil
	case pagePrefix:
		if len(parts) != 2 {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformedToken, data)
		}
		page, err := strconv.Atoi(parts[1])
		if err != nil {
			return Token{}, fmt.Errorf("%w: page %q", ErrMalformedToken, parts[1])
		}
		return PageTo(page), nil
	default:
		return Token{}, fmt.Errorf("%w: %q", ErrMalformedToken, data)
	}
}

func (t Token) Encode() string {
	switch t.Kind {
	case KindPlay:
		return playPrefix + separator + string(t.Origin) + separator + t.ID
	case KindPage:
		return pagePrefix + separator + strconv.Itoa(t.Page)
	case KindCancel:
		return cancelData
	default:
		return ""
	}
}

// HasValidID is false for ids that are empty or the placeholders a broken
// client renders for missing values.
func (t Token) HasValidID() bool {
	return validID(t.ID)
}

func validID(id string) bool {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "", "undefined", "null", "nan":
		return false
	default:
		return true
	}
}
