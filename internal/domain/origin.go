package domain

// Namespace identifies the catalog collection a track belongs to.
type Namespace string

const (
	NamespaceVideo  Namespace = "youtube"
	NamespaceAudio  Namespace = "saavan"
	NamespaceStream Namespace = "spotify"
)

// CatalogNamespaces is the order in which catalog hits are listed.
var CatalogNamespaces = []Namespace{NamespaceVideo, NamespaceAudio, NamespaceStream}

func (n Namespace) Valid() bool {
	switch n {
	case NamespaceVideo, NamespaceAudio, NamespaceStream:
		return true
	default:
		return false
	}
}

// Origin tags a search result with where it came from. The values double as
// the wire names used inside selection tokens.
type Origin string

const (
	OriginCatalogVideo  Origin = "youtube"
	OriginCatalogAudio  Origin = "saavan"
	OriginCatalogStream Origin = "spotify"
	OriginLiveVideo     Origin = "youtube_api"
	OriginLiveAudio     Origin = "saavan_api"
)

func (o Origin) Valid() bool {
	switch o {
	case OriginCatalogVideo, OriginCatalogAudio, OriginCatalogStream, OriginLiveVideo, OriginLiveAudio:
		return true
	default:
		return false
	}
}

func (o Origin) IsCatalog() bool {
	return o == OriginCatalogVideo || o == OriginCatalogAudio || o == OriginCatalogStream
}

func (o Origin) IsLive() bool {
	return o == OriginLiveVideo || o == OriginLiveAudio
}

func (o Origin) Namespace() Namespace {
	switch o {
	case OriginCatalogVideo, OriginLiveVideo:
		return NamespaceVideo
	case OriginCatalogAudio, OriginLiveAudio:
		return NamespaceAudio
	case OriginCatalogStream:
		return NamespaceStream
	default:
		return ""
	}
}

// CatalogOrigin returns the catalog origin for entries stored in n.
func CatalogOrigin(n Namespace) Origin {
	switch n {
	case NamespaceVideo:
		return OriginCatalogVideo
	case NamespaceAudio:
		return OriginCatalogAudio
	case NamespaceStream:
		return OriginCatalogStream
	default:
		return ""
	}
}

// IsVideo reports whether results of this origin come from the video platform.
func (o Origin) IsVideo() bool {
	return o.Namespace() == NamespaceVideo
}
