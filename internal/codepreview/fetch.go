package codepreview

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned by a ContentSource when the path does not exist at the ref.
	ErrNotFound = errors.New("content not found")
	// ErrNotAFile is returned by a ContentSource when the path resolves to a directory
	// or any other non-file entry.
	ErrNotAFile = errors.New("content is not a file")
)

const (
	DefaultPrimaryBranch  = "main"
	DefaultFallbackBranch = "master"
	MaxFetchTimeout       = 10 * time.Second
)

// ContentSource reads the decoded bytes of a single file from a repository
// content API.
type ContentSource interface {
	GetFile(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
}

// FetchStatus classifies the outcome of a fetch.
type FetchStatus int

const (
	FetchFound FetchStatus = iota
	FetchNotFound
	FetchError
)

func (s FetchStatus) String() string {
	switch s {
	case FetchFound:
		return "found"
	case FetchNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// FetchResult is the outcome of fetching one path. Content is set for
// FetchFound. Err is set for FetchError, and for FetchNotFound when the path
// exists but is not a file.
type FetchResult struct {
	Status  FetchStatus
	Content string
	Branch  string
	Err     error
}

// Fetcher retrieves single files, retrying once on a fallback branch when the
// primary branch does not have the path.
type Fetcher struct {
	Source         ContentSource
	PrimaryBranch  string
	FallbackBranch string
	Timeout        time.Duration
}

// NewFetcher returns a Fetcher with the default branch names and timeout.
func NewFetcher(src ContentSource) *Fetcher {
	return &Fetcher{
		Source:         src,
		PrimaryBranch:  DefaultPrimaryBranch,
		FallbackBranch: DefaultFallbackBranch,
		Timeout:        MaxFetchTimeout,
	}
}

// Fetch retrieves path from the primary branch.
func (f *Fetcher) Fetch(ctx context.Context, ref RepositoryReference, path string) FetchResult {
	return f.FetchBranch(ctx, ref, path, f.primary())
}

type fetchStep int

const (
	tryPrimary fetchStep = iota
	trySecondary
	fetchDone
)

// FetchBranch retrieves path at branch. Only a not-found answer for the
// primary branch moves on to the fallback branch, and only once.
func (f *Fetcher) FetchBranch(ctx context.Context, ref RepositoryReference, path, branch string) FetchResult {
	var res FetchResult
	step := tryPrimary
	for step != fetchDone {
		res = f.fetchOnce(ctx, ref, path, branch)
		switch {
		case step == tryPrimary && res.Status == FetchNotFound && res.Err == nil && branch == f.primary():
			branch = f.fallback()
			step = trySecondary
		default:
			step = fetchDone
		}
	}
	return res
}

func (f *Fetcher) fetchOnce(ctx context.Context, ref RepositoryReference, path, branch string) FetchResult {
	ctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	b, err := f.Source.GetFile(ctx, ref.Owner, ref.Name, path, branch)
	switch {
	case errors.Is(err, ErrNotFound):
		return FetchResult{Status: FetchNotFound, Branch: branch}
	case errors.Is(err, ErrNotAFile):
		return FetchResult{Status: FetchNotFound, Branch: branch, Err: err}
	case err != nil:
		return FetchResult{Status: FetchError, Branch: branch, Err: err}
	}
	if !utf8.Valid(b) {
		return FetchResult{Status: FetchError, Branch: branch, Err: fmt.Errorf("%s@%s: content is not valid UTF-8", path, branch)}
	}
	return FetchResult{Status: FetchFound, Branch: branch, Content: string(b)}
}

func (f *Fetcher) primary() string {
	if f.PrimaryBranch == "" {
		return DefaultPrimaryBranch
	}
	return f.PrimaryBranch
}

func (f *Fetcher) fallback() string {
	if f.FallbackBranch == "" {
		return DefaultFallbackBranch
	}
	return f.FallbackBranch
}

func (f *Fetcher) timeout() time.Duration {
	if f.Timeout <= 0 || f.Timeout > MaxFetchTimeout {
		return MaxFetchTimeout
	}
	return f.Timeout
}
