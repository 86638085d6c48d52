package links

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind Kind
		id   string
	}{
		{"plain text", "imagine dragons believer", KindNone, ""},
		{"text mentioning a link", "see https://youtu.be/abc", KindNone, ""},
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", KindYouTube, "dQw4w9WgXcQ"},
		{"short url", "https://youtu.be/dQw4w9WgXcQ?si=xyz", KindYouTube, "dQw4w9WgXcQ"},
		{"shorts", "https://youtube.com/shorts/abcDEF12345", KindYouTube, "abcDEF12345"},
		{"live", "https://www.youtube.com/live/liveID00001?feature=share", KindYouTube, "liveID00001"},
		{"music", "https://music.youtube.com/watch?v=musicID0001", KindYouTube, "musicID0001"},
		{"channel url", "https://www.youtube.com/@ImagineDragons", KindUnsupported, ""},
		{"jiosaavn", "https://www.jiosaavn.com/song/sahiba/Bzc5ei0BZHg", KindSaavn, ""},
		{"spotify track", "https://open.spotify.com/track/0U1TeVxM67Qig7YBdiAosz?si=9a5ea0170d984057", KindSpotify, "0U1TeVxM67Qig7YBdiAosz"},
		{"spotify album", "https://open.spotify.com/album/1", KindUnsupported, ""},
		{"other host", "https://example.com/song.mp3", KindUnsupported, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			link := Classify(tc.text)
			if link.Kind != tc.kind || link.ID != tc.id {
				t.Fatalf("Classify(%q) = %s/%q, want %s/%q", tc.text, link.Kind, link.ID, tc.kind, tc.id)
			}
			if tc.kind == KindSaavn && link.URL != tc.text {
				t.Fatalf("saavn link must keep its URL, got %q", link.URL)
			}
		})
	}
}
