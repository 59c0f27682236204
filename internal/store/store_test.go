package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevenvinci05/portfolio/pkg/models"
)

func TestPgx5URL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://u@db/portfolio", "pgx5://u@db/portfolio"},
		{"pgx5://already/converted", "pgx5://already/converted"},
		{"host=localhost dbname=portfolio", "host=localhost dbname=portfolio"},
	}
	for _, tt := range tests {
		if got := pgx5URL(tt.in); got != tt.want {
			t.Errorf("pgx5URL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, models.DefaultProjectImage, withDefault("  ", models.DefaultProjectImage))
	assert.Equal(t, "me.png", withDefault("me.png", models.DefaultProjectImage))
	assert.Equal(t, []string{}, nonNil(nil))
	assert.ErrorIs(t, affected(0, nil), ErrNotFound)
	assert.NoError(t, affected(1, nil))
	assert.EqualError(t, affected(0, fmt.Errorf("boom")), "boom")
}

// newTestStore connects to POSTGRES_URL and migrates; tests skip without it.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set")
	}
	ctx := context.Background()
	s, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))
	// migrations are idempotent
	require.NoError(t, s.Migrate(ctx))

	_, err = s.pool.Exec(ctx, `TRUNCATE users, projects, contact_messages, reviews RESTART IDENTITY`)
	require.NoError(t, err)
	return s
}

func TestIntegration_Projects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	oldID, err := s.CreateProject(ctx, models.Project{Title: "Old", Description: "first", Featured: true})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	newID, err := s.CreateProject(ctx, models.Project{
		Title:        "New",
		Description:  "second",
		GithubRepo:   "https://github.com/octocat/Hello-World",
		Technologies: []string{"Go", "Postgres"},
	})
	require.NoError(t, err)

	list, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newID, list[0].ID)
	assert.Equal(t, oldID, list[1].ID)
	assert.Equal(t, models.DefaultProjectImage, list[1].Image)
	assert.Equal(t, models.DefaultProjectCategory, list[1].Category)
	assert.Equal(t, []string{"Go", "Postgres"}, list[0].Technologies)

	featured, err := s.FeaturedProjects(ctx, 3)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "Old", featured[0].Title)

	p, ok, err := s.GetProject(ctx, newID)
	require.NoError(t, err)
	require.True(t, ok)
	p.Title = "Renamed"
	p.Featured = true
	require.NoError(t, s.UpdateProject(ctx, p))

	p, ok, err = s.GetProject(ctx, newID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Renamed", p.Title)
	assert.True(t, p.Featured)

	require.NoError(t, s.DeleteProject(ctx, newID))
	_, ok, err = s.GetProject(ctx, newID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, s.DeleteProject(ctx, newID), ErrNotFound)
	assert.ErrorIs(t, s.UpdateProject(ctx, models.Project{ID: 9999, Title: "x"}), ErrNotFound)
}

func TestIntegration_MessagesAndReviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mid, err := s.CreateMessage(ctx, models.ContactMessage{Name: "Ada", Email: "ada@example.com", Subject: "Hi", Message: "Hello there"})
	require.NoError(t, err)
	require.NoError(t, s.MarkMessageRead(ctx, mid))
	msgs, err := s.ListMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)
	require.NoError(t, s.DeleteMessage(ctx, mid))
	assert.ErrorIs(t, s.MarkMessageRead(ctx, mid), ErrNotFound)

	rid, err := s.CreateReview(ctx, models.Review{Name: "Bob", Rating: 5, Comment: "Great work!"})
	require.NoError(t, err)
	approved, err := s.ListReviews(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, approved)

	require.NoError(t, s.ApproveReview(ctx, rid))
	approved, err = s.ListReviews(ctx, true)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, 5, approved[0].Rating)

	all, err := s.ListReviews(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.CreateReview(ctx, models.Review{Name: "Eve", Rating: 7, Comment: "out of range"})
	assert.Error(t, err)
}

func TestIntegration_Users(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CreateUser(ctx, models.User{Username: "admin", Email: "admin@portfolio.com", PasswordHash: "$2a$hash", IsAdmin: true})
	require.NoError(t, err)

	u, ok, err := s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, "$2a$hash", u.PasswordHash)
}
