package codepreview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fileCall struct {
	Owner, Repo, Path, Ref string
}

// MockContentSource implements ContentSource for testing.
type MockContentSource struct {
	GetFileFunc func(ctx context.Context, owner, repo, path, ref string) ([]byte, error)

	mu    sync.Mutex
	Calls []fileCall
}

func (m *MockContentSource) GetFile(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, fileCall{owner, repo, path, ref})
	m.mu.Unlock()
	if m.GetFileFunc != nil {
		return m.GetFileFunc(ctx, owner, repo, path, ref)
	}
	return nil, ErrNotFound
}

var helloWorld = RepositoryReference{Owner: "octocat", Name: "Hello-World"}

func TestFetcher_FallsBackOnceToSecondaryBranch(t *testing.T) {
	src := &MockContentSource{
		GetFileFunc: func(_ context.Context, _, _, _, ref string) ([]byte, error) {
			if ref == "master" {
				return []byte("print('hi')\n"), nil
			}
			return nil, ErrNotFound
		},
	}
	f := NewFetcher(src)

	res := f.Fetch(context.Background(), helloWorld, "main.py")

	assert.Equal(t, FetchFound, res.Status)
	assert.Equal(t, "print('hi')\n", res.Content)
	assert.Equal(t, "master", res.Branch)
	require.Len(t, src.Calls, 2)
	assert.Equal(t, "main", src.Calls[0].Ref)
	assert.Equal(t, "master", src.Calls[1].Ref)
	assert.Equal(t, fileCall{"octocat", "Hello-World", "main.py", "master"}, src.Calls[1])
}

func TestFetcher_PrimaryHitMakesOneCall(t *testing.T) {
	src := &MockContentSource{
		GetFileFunc: func(context.Context, string, string, string, string) ([]byte, error) {
			return []byte("# Hello"), nil
		},
	}
	res := NewFetcher(src).Fetch(context.Background(), helloWorld, "README.md")

	assert.Equal(t, FetchFound, res.Status)
	assert.Equal(t, "main", res.Branch)
	assert.Len(t, src.Calls, 1)
}

func TestFetcher_NotFoundOnBothBranches(t *testing.T) {
	src := &MockContentSource{}
	res := NewFetcher(src).Fetch(context.Background(), helloWorld, "main.go")

	assert.Equal(t, FetchNotFound, res.Status)
	assert.NoError(t, res.Err)
	assert.Len(t, src.Calls, 2)
}

func TestFetcher_NoFallbackForNonPrimaryBranch(t *testing.T) {
	src := &MockContentSource{}
	res := NewFetcher(src).FetchBranch(context.Background(), helloWorld, "main.go", "develop")

	assert.Equal(t, FetchNotFound, res.Status)
	require.Len(t, src.Calls, 1)
	assert.Equal(t, "develop", src.Calls[0].Ref)
}

func TestFetcher_ErrorDoesNotFallBack(t *testing.T) {
	boom := errors.New("connection reset")
	src := &MockContentSource{
		GetFileFunc: func(context.Context, string, string, string, string) ([]byte, error) {
			return nil, fmt.Errorf("GET contents: %w", boom)
		},
	}
	res := NewFetcher(src).Fetch(context.Background(), helloWorld, "app.py")

	assert.Equal(t, FetchError, res.Status)
	assert.ErrorIs(t, res.Err, boom)
	assert.Len(t, src.Calls, 1)
}

func TestFetcher_DirectoryIsAMissWithoutFallback(t *testing.T) {
	src := &MockContentSource{
		GetFileFunc: func(context.Context, string, string, string, string) ([]byte, error) {
			return nil, ErrNotAFile
		},
	}
	res := NewFetcher(src).Fetch(context.Background(), helloWorld, "src")

	assert.Equal(t, FetchNotFound, res.Status)
	assert.ErrorIs(t, res.Err, ErrNotAFile)
	assert.Len(t, src.Calls, 1)
}

func TestFetcher_InvalidUTF8IsError(t *testing.T) {
	src := &MockContentSource{
		GetFileFunc: func(context.Context, string, string, string, string) ([]byte, error) {
			return []byte{0xff, 0xfe, 0xfd}, nil
		},
	}
	res := NewFetcher(src).Fetch(context.Background(), helloWorld, "logo.png")

	assert.Equal(t, FetchError, res.Status)
	assert.Error(t, res.Err)
}

func TestFetcher_EachCallIsTimeBounded(t *testing.T) {
	src := &MockContentSource{
		GetFileFunc: func(ctx context.Context, _, _, _, _ string) ([]byte, error) {
			deadline, ok := ctx.Deadline()
			if !ok {
				return nil, errors.New("no deadline")
			}
			if time.Until(deadline) > 50*time.Millisecond {
				return nil, errors.New("deadline too far")
			}
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	f := NewFetcher(src)
	f.Timeout = 20 * time.Millisecond

	res := f.Fetch(context.Background(), helloWorld, "main.py")

	assert.Equal(t, FetchError, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestFetcher_TimeoutIsCapped(t *testing.T) {
	f := &Fetcher{Timeout: time.Minute}
	assert.Equal(t, MaxFetchTimeout, f.timeout())

	f.Timeout = 0
	assert.Equal(t, MaxFetchTimeout, f.timeout())

	f.Timeout = 2 * time.Second
	assert.Equal(t, 2*time.Second, f.timeout())
}

func TestFetchStatus_String(t *testing.T) {
	assert.Equal(t, "found", FetchFound.String())
	assert.Equal(t, "not_found", FetchNotFound.String())
	assert.Equal(t, "error", FetchError.String())
}
