package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSVG(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"no fragment", "Maaf, saya tidak bisa menggambar.", ""},
		{"open tag only", "<svg width='10'>", ""},
		{"close tag only", "</svg>", ""},
		{"first of many", "blah <svg>A</svg> blah <svg>B</svg>", "<svg>A</svg>"},
		{"mixed case", "<SVG>x</SVG>", "<SVG>x</SVG>"},
		{"multiline", "<svg>\n<rect/>\n</svg>", "<svg>\n<rect/>\n</svg>"},
		{
			"surrounded by prose and fences",
			"Berikut gambarnya:\n```svg\n<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 10 10\"><circle r=\"5\"/></svg>\n```\nSemoga membantu.",
			"<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 10 10\"><circle r=\"5\"/></svg>",
		},
		{"unbalanced inner tags kept verbatim", "<svg><g><rect></svg>", "<svg><g><rect></svg>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSVG(tt.input))
		})
	}
}
