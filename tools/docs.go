package tools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// DocsInput defines the input for the search_documents tool.
type DocsInput struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Glob pattern relative to the documents directory (e.g. policies/**/*.md)"`
}

// DocsOutput defines the output of the search_documents tool.
type DocsOutput struct {
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// DocsTool finds company documents under root matching a glob pattern.
// Supports ** for recursive matching.
func DocsTool(root string) Tool {
	return NewTool(
		"search_documents",
		"Find company policy and onboarding documents matching a glob pattern.",
		func(ctx context.Context, in DocsInput) (DocsOutput, error) {
			fsys := os.DirFS(filepath.Clean(root))
			matches, err := doublestar.Glob(fsys, in.Pattern)
			if err != nil {
				return DocsOutput{}, err
			}
			return DocsOutput{
				Files: matches,
				Count: len(matches),
			}, nil
		},
	)
}
