package codepreview

import "testing"

func TestClassify(t *testing.T) {
	tests := map[string]string{
		"main.py":          "python",
		"src/index.js":     "javascript",
		"src/App.JSX":      "jsx",
		"main.go":          "go",
		"index.html":       "html",
		"style.css":        "css",
		"README.md":        "markdown",
		"package.json":     "json",
		"config.yml":       "yaml",
		"Cargo.toml":       "toml",
		"requirements.txt": "text",
		"Makefile":         "text",
		"LICENSE":          "text",
		"archive.tar.zzz":  "text",
		"trailing.":        "text",
		"v1.2/Dockerfile":  "text",
	}
	for path, want := range tests {
		if got := Classify(path); got != want {
			t.Errorf("Classify(%q) = %q, want %q", path, got, want)
		}
	}
}
