package codepreview

import (
	"regexp"
	"strings"
)

// RepositoryReference identifies a repository on the remote platform.
type RepositoryReference struct {
	Owner string
	Name  string
}

func (r RepositoryReference) String() string { return r.Owner + "/" + r.Name }

// Ordered from most to least specific; the first pattern that matches wins.
var repoURLPatterns = []*regexp.Regexp{
	// https://github.com/owner/repo.git, git@github.com:owner/repo.git
	regexp.MustCompile(`^(?:[A-Za-z][A-Za-z0-9+.-]*://)?(?:[^@/\s]+@)?[^/:\s]+[/:]([^/\s]+)/([^/\s]+)\.git/?$`),
	// https://github.com/owner/repo, https://github.com/owner/repo/
	regexp.MustCompile(`^(?:[A-Za-z][A-Za-z0-9+.-]*://)?(?:[^@/\s]+@)?[^/:\s]+[/:]([^/\s]+)/([^/\s]+?)/?$`),
	// owner/repo anywhere, optionally after a host such as github.com/.
	// Owner slugs never contain dots, which keeps "github.com/owner" from
	// being read as owner "com".
	regexp.MustCompile(`(?:^|[^A-Za-z0-9_.-])(?:[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)+[/:])?([A-Za-z0-9-]+)/([A-Za-z0-9_.-]+)`),
}

// ParseRepositoryURL extracts owner and repository name from a free-form
// repository URL. It reports false when the input is empty or unusable.
func ParseRepositoryURL(raw string) (RepositoryReference, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RepositoryReference{}, false
	}
	for _, re := range repoURLPatterns {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		ref := RepositoryReference{
			Owner: m[1],
			Name:  strings.TrimSuffix(m[2], ".git"),
		}
		if ref.Owner == "" || ref.Name == "" {
			return RepositoryReference{}, false
		}
		return ref, true
	}
	return RepositoryReference{}, false
}
