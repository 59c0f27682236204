package codepreview

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/stevenvinci05/portfolio/pkg/models"
)

// MaxFiles is the most files a single resolution returns.
const MaxFiles = 5

// DefaultCandidates are probed in order: entrypoints first, then dependency
// manifests, then markup/style, then documentation.
var DefaultCandidates = []string{
	// entrypoints
	"main.py",
	"app.py",
	"index.js",
	"main.js",
	"app.js",
	"server.js",
	"main.go",
	"src/main.py",
	"src/index.js",
	"src/App.js",
	"src/main.rs",
	// manifests
	"requirements.txt",
	"package.json",
	"go.mod",
	"Cargo.toml",
	"pyproject.toml",
	// markup and style
	"index.html",
	"style.css",
	"styles.css",
	// documentation
	"README.md",
}

// FileFetcher is the part of Fetcher the Resolver needs.
type FileFetcher interface {
	Fetch(ctx context.Context, ref RepositoryReference, path string) FetchResult
}

// CodeFiles is an ordered mapping from path to file, in candidate order.
type CodeFiles []models.CodeFile

// Get returns the file stored under path.
func (c CodeFiles) Get(path string) (models.CodeFile, bool) {
	for _, f := range c {
		if f.Path == path {
			return f, true
		}
	}
	return models.CodeFile{}, false
}

// Paths returns the stored paths in order.
func (c CodeFiles) Paths() []string {
	out := make([]string, 0, len(c))
	for _, f := range c {
		out = append(out, f.Path)
	}
	return out
}

// Resolver assembles the preview set for a project repository.
type Resolver struct {
	Fetcher    FileFetcher
	Candidates []string
	Limit      int
}

// NewResolver returns a Resolver over DefaultCandidates with the MaxFiles cap.
func NewResolver(f FileFetcher) *Resolver {
	return &Resolver{Fetcher: f, Candidates: DefaultCandidates, Limit: MaxFiles}
}

// Resolve returns up to Limit files from the repository at repoURL. It never
// fails: unusable URLs and unreachable files just yield fewer entries.
func (r *Resolver) Resolve(ctx context.Context, repoURL string) CodeFiles {
	files := CodeFiles{}
	ref, ok := ParseRepositoryURL(repoURL)
	if !ok {
		return files
	}

	logger := log.Ctx(ctx).With().Str("repository", ref.String()).Logger()
	limit := r.limit()
	seen := make(map[string]struct{}, limit)
	for _, p := range r.candidates() {
		if len(files) >= limit {
			break
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		res := r.Fetcher.Fetch(ctx, ref, p)
		switch res.Status {
		case FetchFound:
			files = append(files, models.CodeFile{Path: p, Content: res.Content, Language: Classify(p)})
		case FetchNotFound:
			logger.Debug().Str("path", p).Msg("candidate not found")
		default:
			logger.Warn().Err(res.Err).Str("path", p).Str("branch", res.Branch).Msg("candidate fetch failed")
		}
	}
	logger.Debug().Int("files", len(files)).Msg("resolved code preview")
	return files
}

func (r *Resolver) limit() int {
	if r.Limit <= 0 || r.Limit > MaxFiles {
		return MaxFiles
	}
	return r.Limit
}

func (r *Resolver) candidates() []string {
	if r.Candidates == nil {
		return DefaultCandidates
	}
	return r.Candidates
}
