package codepreview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRepositoryURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  RepositoryReference
		ok    bool
	}{
		{"git suffix stripped", "https://github.com/octocat/Hello-World.git", RepositoryReference{"octocat", "Hello-World"}, true},
		{"plain https", "https://github.com/octocat/Hello-World", RepositoryReference{"octocat", "Hello-World"}, true},
		{"trailing slash", "https://github.com/octocat/Hello-World/", RepositoryReference{"octocat", "Hello-World"}, true},
		{"git suffix with slash", "https://github.com/octocat/Hello-World.git/", RepositoryReference{"octocat", "Hello-World"}, true},
		{"other host", "https://gitlab.example.org/team/tool", RepositoryReference{"team", "tool"}, true},
		{"ssh form", "git@github.com:stevenVinci05/Morfeo.git", RepositoryReference{"stevenVinci05", "Morfeo"}, true},
		{"no scheme", "github.com/user/project", RepositoryReference{"user", "project"}, true},
		{"bare owner repo", "username/repo-name", RepositoryReference{"username", "repo-name"}, true},
		{"deep link", "https://github.com/octocat/Hello-World/tree/main/docs", RepositoryReference{"octocat", "Hello-World"}, true},
		{"embedded in text", "code lives at github.com/octocat/Spoon-Knife now", RepositoryReference{"octocat", "Spoon-Knife"}, true},
		{"surrounding whitespace", "  https://github.com/octocat/Hello-World \n", RepositoryReference{"octocat", "Hello-World"}, true},
		{"empty", "", RepositoryReference{}, false},
		{"blank", "   ", RepositoryReference{}, false},
		{"not a url", "not a url", RepositoryReference{}, false},
		{"invalid", "invalid-url", RepositoryReference{}, false},
		{"owner only", "https://github.com/octocat", RepositoryReference{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRepositoryURL(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRepositoryURL_EquivalentForms(t *testing.T) {
	forms := []string{
		"https://example.com/acme/widgets",
		"https://example.com/acme/widgets/",
		"https://example.com/acme/widgets.git",
		"https://example.com/acme/widgets.git/",
	}
	for _, f := range forms {
		got, ok := ParseRepositoryURL(f)
		assert.True(t, ok, f)
		assert.Equal(t, RepositoryReference{Owner: "acme", Name: "widgets"}, got, f)
	}
}

func TestRepositoryReference_String(t *testing.T) {
	assert.Equal(t, "octocat/Hello-World", RepositoryReference{"octocat", "Hello-World"}.String())
}
