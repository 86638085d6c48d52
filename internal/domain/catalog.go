package domain

import (
	"errors"
	"time"
)

// DistributionRef is the message id of a published copy in the distribution channel.
type DistributionRef int

type CatalogEntry struct {
	ID              string          `json:"id"`
	Namespace       Namespace       `json:"namespace"`
	ProviderID      string          `json:"providerId"`
	Title           string          `json:"title"`
	Artist          string          `json:"artist"`
	DistributionRef DistributionRef `json:"distributionRef"`
	Duration        int             `json:"duration"`
	SourceURL       string          `json:"sourceUrl,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func (e CatalogEntry) Validate() error {
	if !e.Namespace.Valid() {
		return errors.New("invalid namespace: " + string(e.Namespace))
	}
	if e.ProviderID == "" {
		return errors.New("provider id is required")
	}
	if e.DistributionRef <= 0 {
		return errors.New("distribution ref is required")
	}
	if e.Duration < 0 {
		return errors.New("duration must not be negative")
	}
	return nil
}

// Track is what a fetch-convert-publish run produces.
type Track struct {
	ProviderID string
	Title      string
	Artist     string
	Duration   int
	SourceURL  string
	Ref        DistributionRef
}

func (t Track) Entry(ns Namespace, now time.Time) CatalogEntry {
	return CatalogEntry{
		Namespace:       ns,
		ProviderID:      t.ProviderID,
		Title:           t.Title,
		Artist:          t.Artist,
		DistributionRef: t.Ref,
		Duration:        t.Duration,
		SourceURL:       t.SourceURL,
		CreatedAt:       now,
	}
}

// Delivery addresses the requester a track is sent to.
type Delivery struct {
	ChatID           int64
	ReplyToMessageID int
}
