// Package textops provides small built-in text operations. They are the
// bridge's self-contained demonstration set: no external collaborator is
// needed, which also makes them the operations exercised by smoke tests and
// examples.
package textops

import (
	"context"
	"strings"

	"github.com/germanamz/opwire/pkg/ops"
	"github.com/pmezard/go-difflib/difflib"
)

// Specs returns the text operation specs, ready for registration.
func Specs() []ops.Spec {
	return []ops.Spec{
		{
			Name:        "echo",
			Description: "Echoes the given text back unchanged",
			Params: map[string]ops.Param{
				"text": {Type: ops.TypeString, Description: "Text to echo", Required: true},
			},
			Handler: echo,
		},
		{
			Name:        "text_diff",
			Description: "Produces a unified diff between two texts",
			Params: map[string]ops.Param{
				"a":       {Type: ops.TypeString, Description: "Original text", Required: true},
				"b":       {Type: ops.TypeString, Description: "Changed text", Required: true},
				"context": {Type: ops.TypeInteger, Description: "Context lines around changes", Default: 3},
			},
			Handler: textDiff,
		},
		{
			Name:        "word_count",
			Description: "Counts words, lines, and bytes in the given text",
			Params: map[string]ops.Param{
				"text": {Type: ops.TypeString, Description: "Text to measure", Required: true},
			},
			Handler: wordCount,
		},
	}
}

func echo(_ context.Context, args map[string]any) (any, error) {
	return args["text"], nil
}

func textDiff(_ context.Context, args map[string]any) (any, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(args["a"].(string)),
		B:        difflib.SplitLines(args["b"].(string)),
		FromFile: "a",
		ToFile:   "b",
		Context:  args["context"].(int),
	}

	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func wordCount(_ context.Context, args map[string]any) (any, error) {
	text := args["text"].(string)

	return map[string]any{
		"words": len(strings.Fields(text)),
		"lines": strings.Count(text, "\n") + 1,
		"bytes": len(text),
	}, nil
}
