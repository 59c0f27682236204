// Package github reads repository files through the GitHub contents API using
// go-github. Only unauthenticated access to public repositories is supported.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/stevenvinci05/portfolio/internal/codepreview"
)

const defaultAPIURL = "https://api.github.com"

// Compile-time check: *Client implements codepreview.ContentSource.
var _ codepreview.ContentSource = (*Client)(nil)

// Client fetches single files from the contents API.
type Client struct {
	gh *gogithub.Client
}

// NewClient creates a Client. Pass baseURL="" for the public GitHub API or a
// custom URL (e.g. an httptest server) otherwise. timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	gh := gogithub.NewClient(&http.Client{Timeout: timeout})
	if baseURL != "" && baseURL != defaultAPIURL {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github api url %q: %w", baseURL, err)
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh}, nil
}

// GetFile returns the decoded content of path at ref. A 404 maps to
// codepreview.ErrNotFound and a directory or non-file entry to
// codepreview.ErrNotAFile; every other failure is returned wrapped.
func (c *Client) GetFile(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	opts := &gogithub.RepositoryContentGetOptions{Ref: ref}
	fc, dir, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s/%s/%s@%s: %w", owner, repo, path, ref, codepreview.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get contents %s/%s/%s@%s: %w", owner, repo, path, ref, err)
	}
	if fc == nil || dir != nil || fc.GetType() != "file" {
		return nil, fmt.Errorf("%s/%s/%s@%s: %w", owner, repo, path, ref, codepreview.ErrNotAFile)
	}
	content, err := fc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode content %s: %w", path, err)
	}
	return []byte(content), nil
}
