package selection

import (
	"errors"
	"testing"

	"lunemusic/internal/domain"
)

func TestParseTokens(t *testing.T) {
	cases := []struct {
		data string
		want Token
	}{
		{"cancel_search", Cancel()},
		{"page|3", PageTo(3)},
		{"play|youtube|65f0c0ffee0000000000abcd", Play(domain.OriginCatalogVideo, "65f0c0ffee0000000000abcd")},
		{"play|saavan|65f0c0ffee0000000000abce", Play(domain.OriginCatalogAudio, "65f0c0ffee0000000000abce")},
		{"play|spotify|65f0c0ffee0000000000abcf", Play(domain.OriginCatalogStream, "65f0c0ffee0000000000abcf")},
		{"play|youtube_api|dQw4w9WgXcQ", Play(domain.OriginLiveVideo, "dQw4w9WgXcQ")},
		{"play|saavan_api|Xy12AbCd", Play(domain.OriginLiveAudio, "Xy12AbCd")},
	}
	for _, tc := range cases {
		got, err := Parse(tc.data)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.data, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", tc.data, got, tc.want)
		}
		if enc := got.Encode(); enc != tc.data {
			t.Fatalf("Encode() = %q, want %q", enc, tc.data)
		}
	}
}

func TestParseUndefinedIDDecodesButIsInvalid(t *testing.T) {
	tok, err := Parse("play|saavan_api|undefined")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tok.HasValidID() {
		t.Fatal("undefined id must not be valid")
	}
	tok, err = Parse("play|youtube_api|")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tok.HasValidID() {
		t.Fatal("empty id must not be valid")
	}
}

func TestParseMalformed(t *testing.T) {
	for _, data := range []string{"", "play", "play|youtube", "play|vimeo|x", "page|two", "page", "confirm_broadcast:1", "play|a|b|c"} {
		if _, err := Parse(data); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("Parse(%q) error = %v, want ErrMalformedToken", data, err)
		}
	}
}

func TestIsListingData(t *testing.T) {
	for _, data := range []string{"cancel_search", "page|2", "play|youtube|x"} {
		if !IsListingData(data) {
			t.Fatalf("%q should be listing data", data)
		}
	}
	for _, data := range []string{"my_stats", "help", "check_membership", "cancel_broadcast", "confirm_broadcast:5"} {
		if IsListingData(data) {
			t.Fatalf("%q should not be listing data", data)
		}
	}
}
