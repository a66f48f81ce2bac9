package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "Revived a historic restaurant.", "Revived a historic restaurant."},
		{"heading", "## Overview\nBuilt a thing.", "Overview\nBuilt a thing."},
		{"bold and italic", "A **bold** and *italic* move", "A bold and italic move"},
		{"link keeps text", "See [the site](https://example.com) now", "See the site now"},
		{"image dropped", "Before ![shot](img.png) after", "Before  after"},
		{"inline code", "Uses `pgvector` for search", "Uses pgvector for search"},
		{"bullets", "- Go\n- Postgres", "Go\nPostgres"},
		{"numbered", "1. First\n2) Second", "First\nSecond"},
		{"blockquote", "> quoted line", "quoted line"},
		{"code block body kept", "```go\nfmt.Println()\n```", "fmt.Println()"},
		{"collapse blank lines", "# A\n\n\n\nB", "A\n\nB"},
		{"snake case survives", "uses snake_case_names", "uses snake_case_names"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Strip(tt.input))
		})
	}
}
