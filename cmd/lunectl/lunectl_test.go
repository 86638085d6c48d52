package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lunemusic/internal/domain"
)

type stubUsers struct {
	users      []domain.User
	stats      domain.UserStats
	err        error
	statsSince time.Time
}

func (s *stubUsers) Touch(context.Context, domain.UserProfile, time.Time) error { return nil }
func (s *stubUsers) Get(context.Context, int64) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}
func (s *stubUsers) ListReachable(context.Context) ([]domain.User, error) { return s.users, s.err }
func (s *stubUsers) ListAll(context.Context) ([]domain.User, error)       { return s.users, s.err }
func (s *stubUsers) MarkBlocked(context.Context, int64) error             { return nil }
func (s *stubUsers) Stats(_ context.Context, since time.Time) (domain.UserStats, error) {
	s.statsSince = since
	return s.stats, s.err
}

type stubCatalog struct {
	counts   map[domain.Namespace]int64
	entries  map[domain.Namespace][]domain.CatalogEntry
	patterns []string
}

func (s *stubCatalog) FindByID(context.Context, domain.Namespace, string) (domain.CatalogEntry, error) {
	return domain.CatalogEntry{}, domain.ErrNotFound
}
func (s *stubCatalog) FindByProviderID(context.Context, domain.Namespace, string) (domain.CatalogEntry, error) {
	return domain.CatalogEntry{}, domain.ErrNotFound
}
func (s *stubCatalog) FindBySourceURL(context.Context, domain.Namespace, string) (domain.CatalogEntry, error) {
	return domain.CatalogEntry{}, domain.ErrNotFound
}
func (s *stubCatalog) Match(_ context.Context, ns domain.Namespace, pattern string) ([]domain.CatalogEntry, error) {
	s.patterns = append(s.patterns, pattern)
	return s.entries[ns], nil
}
func (s *stubCatalog) Create(_ context.Context, e domain.CatalogEntry) (domain.CatalogEntry, error) {
	return e, nil
}
func (s *stubCatalog) Count(_ context.Context, ns domain.Namespace) (int64, error) {
	return s.counts[ns], nil
}

func TestExportUsersWritesCSV(t *testing.T) {
	users := &stubUsers{users: []domain.User{
		{UserID: 1, FirstName: "Asha", Interactions: 3},
		{UserID: 2, FirstName: "Ravi", Blocked: true},
	}}
	var buf bytes.Buffer

	n, err := exportUsers(context.Background(), users, &buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "UserID,FirstName"))
	require.True(t, strings.HasPrefix(lines[2], "2,Ravi,,,true"))
}

func TestExportUsersPropagatesStoreError(t *testing.T) {
	_, err := exportUsers(context.Background(), &stubUsers{err: errors.New("boom")}, &bytes.Buffer{})
	require.ErrorContains(t, err, "list users")
}

func TestPrintUserStats(t *testing.T) {
	users := &stubUsers{stats: domain.UserStats{Total: 9, Active: 7, Blocked: 2, RecentActive: 4}}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer

	require.NoError(t, printUserStats(context.Background(), users, 24*time.Hour, now, &buf))
	require.Equal(t, now.Add(-24*time.Hour), users.statsSince)
	require.Equal(t, "total\t9\nactive\t7\nblocked\t2\nrecent\t4\n", buf.String())
}

func TestPrintCatalogStats(t *testing.T) {
	catalog := &stubCatalog{counts: map[domain.Namespace]int64{
		domain.NamespaceVideo: 3,
		domain.NamespaceAudio: 5,
	}}
	var buf bytes.Buffer

	require.NoError(t, printCatalogStats(context.Background(), catalog, &buf))
	out := buf.String()
	require.Contains(t, out, "youtube")
	require.Contains(t, out, "spotify")
	require.Regexp(t, `total\s+8`, out)
}

func TestPrintCatalogMatchesUsesMatcherPattern(t *testing.T) {
	catalog := &stubCatalog{entries: map[domain.Namespace][]domain.CatalogEntry{
		domain.NamespaceAudio: {{ID: "abc", Title: "Believer", Artist: "Imagine Dragons", DistributionRef: 12}},
	}}
	var buf bytes.Buffer

	require.NoError(t, printCatalogMatches(context.Background(), catalog, "Imagine Dragons - Believer!", &buf))
	require.Len(t, catalog.patterns, 3)
	require.Equal(t, "imagine.*dragons.*believer", catalog.patterns[0])
	require.Contains(t, buf.String(), "Believer")
}

func TestPrintCatalogMatchesRejectsEmptyQuery(t *testing.T) {
	err := printCatalogMatches(context.Background(), &stubCatalog{}, "!!!", &bytes.Buffer{})
	require.Error(t, err)
}
