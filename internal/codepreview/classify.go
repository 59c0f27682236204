package codepreview

import (
	"path"
	"strings"
)

// LanguageText is the tag for unknown or missing extensions.
const LanguageText = "text"

var languageByExt = map[string]string{
	// scripts and source
	"py":    "python",
	"js":    "javascript",
	"mjs":   "javascript",
	"jsx":   "jsx",
	"ts":    "typescript",
	"tsx":   "tsx",
	"go":    "go",
	"rs":    "rust",
	"java":  "java",
	"kt":    "kotlin",
	"c":     "c",
	"h":     "c",
	"cpp":   "cpp",
	"cc":    "cpp",
	"hpp":   "cpp",
	"cs":    "csharp",
	"rb":    "ruby",
	"php":   "php",
	"swift": "swift",
	"sh":    "bash",
	"bash":  "bash",
	"sql":   "sql",
	"tf":    "terraform",
	// markup
	"html": "html",
	"htm":  "html",
	"xml":  "xml",
	"vue":  "markup",
	// style
	"css":  "css",
	"scss": "scss",
	"sass": "sass",
	"less": "less",
	// config
	"toml": "toml",
	"ini":  "ini",
	"cfg":  "ini",
	"env":  "bash",
	"mod":  "go",
	// documentation
	"md":  "markdown",
	"rst": "rest",
	"txt": LanguageText,
	// data serialization
	"json": "json",
	"yaml": "yaml",
	"yml":  "yaml",
}

// Classify derives the display language tag for a file path from its extension.
func Classify(p string) string {
	base := path.Base(p)
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return LanguageText
	}
	if lang, ok := languageByExt[strings.ToLower(base[i+1:])]; ok {
		return lang
	}
	return LanguageText
}
