package codepreview

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevenvinci05/portfolio/pkg/models"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// MockFileFetcher implements FileFetcher for testing.
type MockFileFetcher struct {
	FetchFunc func(ctx context.Context, ref RepositoryReference, path string) FetchResult
	Probed    []string
}

func (m *MockFileFetcher) Fetch(ctx context.Context, ref RepositoryReference, path string) FetchResult {
	m.Probed = append(m.Probed, path)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, ref, path)
	}
	return FetchResult{Status: FetchNotFound}
}

func TestResolver_UnparseableURLMakesNoCalls(t *testing.T) {
	for _, u := range []string{"", "not a url"} {
		f := &MockFileFetcher{}
		files := NewResolver(f).Resolve(context.Background(), u)

		assert.NotNil(t, files)
		assert.Empty(t, files)
		assert.Empty(t, f.Probed, "input %q", u)
	}
}

func TestResolver_StopsAtCap(t *testing.T) {
	candidates := []string{"a.py", "b.js", "c.go", "d.md", "e.css", "f.html", "g.txt"}
	f := &MockFileFetcher{
		FetchFunc: func(_ context.Context, _ RepositoryReference, path string) FetchResult {
			return FetchResult{Status: FetchFound, Content: "content of " + path}
		},
	}
	r := &Resolver{Fetcher: f, Candidates: candidates, Limit: MaxFiles}

	files := r.Resolve(context.Background(), "https://github.com/octocat/Hello-World")

	require.Len(t, files, 5)
	assert.Equal(t, []string{"a.py", "b.js", "c.go", "d.md", "e.css"}, files.Paths())
	assert.Equal(t, candidates[:5], f.Probed, "sixth candidate must never be probed")
	assert.Equal(t, models.CodeFile{Path: "a.py", Content: "content of a.py", Language: "python"}, files[0])
}

func TestResolver_SkipsMissesAndErrors(t *testing.T) {
	f := &MockFileFetcher{
		FetchFunc: func(_ context.Context, ref RepositoryReference, path string) FetchResult {
			assert.Equal(t, RepositoryReference{"octocat", "Hello-World"}, ref)
			switch path {
			case "main.py":
				return FetchResult{Status: FetchError, Err: errors.New("timeout")}
			case "package.json":
				return FetchResult{Status: FetchFound, Content: "{}"}
			case "README.md":
				return FetchResult{Status: FetchFound, Content: "# Hello"}
			}
			return FetchResult{Status: FetchNotFound}
		},
	}

	files := NewResolver(f).Resolve(context.Background(), "https://github.com/octocat/Hello-World.git")

	assert.Equal(t, []string{"package.json", "README.md"}, files.Paths())
	assert.Len(t, f.Probed, len(DefaultCandidates))

	readme, ok := files.Get("README.md")
	require.True(t, ok)
	assert.Equal(t, "markdown", readme.Language)
	_, ok = files.Get("main.py")
	assert.False(t, ok)
}

func TestResolver_AllErrorsYieldEmptyResult(t *testing.T) {
	f := &MockFileFetcher{
		FetchFunc: func(context.Context, RepositoryReference, string) FetchResult {
			return FetchResult{Status: FetchError, Err: errors.New("rate limited")}
		},
	}

	files := NewResolver(f).Resolve(context.Background(), "https://github.com/octocat/Hello-World")

	assert.Empty(t, files)
	assert.Len(t, f.Probed, len(DefaultCandidates))
}

func TestResolver_IgnoresDuplicateCandidates(t *testing.T) {
	f := &MockFileFetcher{
		FetchFunc: func(context.Context, RepositoryReference, string) FetchResult {
			return FetchResult{Status: FetchFound, Content: "x"}
		},
	}
	r := &Resolver{Fetcher: f, Candidates: []string{"a.py", "a.py", "b.py"}}

	files := r.Resolve(context.Background(), "octocat/Hello-World")

	assert.Equal(t, []string{"a.py", "b.py"}, files.Paths())
	assert.Equal(t, []string{"a.py", "b.py"}, f.Probed)
}

func TestResolver_LimitIsClamped(t *testing.T) {
	assert.Equal(t, MaxFiles, (&Resolver{Limit: 50}).limit())
	assert.Equal(t, MaxFiles, (&Resolver{}).limit())
	assert.Equal(t, 2, (&Resolver{Limit: 2}).limit())
}

func TestResolver_WithFetcherEndToEnd(t *testing.T) {
	src := &MockContentSource{
		GetFileFunc: func(_ context.Context, _, _, path, ref string) ([]byte, error) {
			if path == "app.py" && ref == "master" {
				return []byte("from flask import Flask\n"), nil
			}
			return nil, ErrNotFound
		},
	}

	files := NewResolver(NewFetcher(src)).Resolve(context.Background(), "https://github.com/stevenVinci05/Morfeo.git")

	require.Len(t, files, 1)
	assert.Equal(t, models.CodeFile{Path: "app.py", Content: "from flask import Flask\n", Language: "python"}, files[0])
	assert.Len(t, src.Calls, 2*len(DefaultCandidates))
}
