// Package models discovers the selectable models from the remote and
// classifies them into families for capability defaults.
package models

import (
	"context"
	"log/slog"
	"strings"

	"github.com/waddleai/waddle-go/internal/api"
)

// Family is a coarse grouping of models by provider lineage, used to assign
// sane default token ceilings.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyMeta      Family = "meta"
	FamilyMistral   Family = "mistral"
	FamilyGoogle    Family = "google"
	FamilyOther     Family = "other"
)

// Descriptor describes one selectable model.
type Descriptor struct {
	ID              string `json:"id"`
	Family          Family `json:"family"`
	Version         string `json:"version,omitempty"`
	MaxInputTokens  int64  `json:"max_input_tokens"`
	MaxOutputTokens int64  `json:"max_output_tokens"`
}

// familyMarkers is the ordered list of identifier substrings; first match
// wins. Applied identically to discovered and fallback descriptors so
// default token limits never diverge between the two paths.
var familyMarkers = []struct {
	marker string
	family Family
}{
	{"gpt", FamilyOpenAI},
	{"o1", FamilyOpenAI},
	{"o3", FamilyOpenAI},
	{"claude", FamilyAnthropic},
	{"llama", FamilyMeta},
	{"mistral", FamilyMistral},
	{"mixtral", FamilyMistral},
	{"gemini", FamilyGoogle},
}

// ClassifyFamily maps a model identifier to its family.
func ClassifyFamily(id string) Family {
	lower := strings.ToLower(id)
	for _, m := range familyMarkers {
		if strings.Contains(lower, m.marker) {
			return m.family
		}
	}
	return FamilyOther
}

// familyDefaults holds default token ceilings per family, used when
// discovery reports no explicit limits. Every family the markers can
// produce, plus FamilyOther, has an entry, so defaults are never undefined.
var familyDefaults = map[Family]struct {
	input, output int64
}{
	FamilyOpenAI:    {input: 128_000, output: 4_096},
	FamilyAnthropic: {input: 200_000, output: 8_192},
	FamilyMeta:      {input: 8_192, output: 2_048},
	FamilyMistral:   {input: 32_768, output: 4_096},
	FamilyGoogle:    {input: 1_000_000, output: 8_192},
	FamilyOther:     {input: 8_192, output: 2_048},
}

// fallbackIDs is the fixed built-in catalog used when discovery fails. It
// carries at least one entry per known family marker.
var fallbackIDs = []string{
	"gpt-4",
	"gpt-3.5-turbo",
	"claude-3-opus-20240229",
	"claude-3-sonnet-20240229",
	"llama3",
	"mistral-7b",
	"gemini-1.5-pro",
}

// describe builds a descriptor from an identifier and optional explicit
// limits (zero means "use the family default").
func describe(id string, maxInput, maxOutput int64) Descriptor {
	family := ClassifyFamily(id)
	defaults := familyDefaults[family]
	if maxInput <= 0 {
		maxInput = defaults.input
	}
	if maxOutput <= 0 {
		maxOutput = defaults.output
	}
	return Descriptor{
		ID:              id,
		Family:          family,
		Version:         version(id),
		MaxInputTokens:  maxInput,
		MaxOutputTokens: maxOutput,
	}
}

// version extracts a trailing date or version marker from the identifier,
// e.g. "claude-3-opus-20240229" -> "20240229".
func version(id string) string {
	i := strings.LastIndex(id, "-")
	if i < 0 || i == len(id)-1 {
		return ""
	}
	tail := id[i+1:]
	for _, r := range tail {
		if r < '0' || r > '9' {
			if r != '.' {
				return ""
			}
		}
	}
	return tail
}

// Fallback returns the built-in catalog.
func Fallback() []Descriptor {
	out := make([]Descriptor, 0, len(fallbackIDs))
	for _, id := range fallbackIDs {
		out = append(out, describe(id, 0, 0))
	}
	return out
}

// Discoverer fetches the remote catalog. *client.Client satisfies it.
type Discoverer interface {
	Models(ctx context.Context) ([]api.Model, error)
}

// Directory lists models, preferring remote discovery with a static
// fallback so the host is never left with zero selectable models.
type Directory struct {
	discoverer Discoverer
}

func NewDirectory(discoverer Discoverer) *Directory {
	return &Directory{discoverer: discoverer}
}

// List attempts remote discovery and falls back to the built-in catalog on
// any failure. An empty remote result is not itself a failure.
func (d *Directory) List(ctx context.Context) []Descriptor {
	remote, err := d.discoverer.Models(ctx)
	if err != nil {
		slog.Debug("model discovery failed, using fallback catalog", "error", err)
		return Fallback()
	}
	out := make([]Descriptor, 0, len(remote))
	for _, m := range remote {
		out = append(out, describe(m.ID, m.ContextLength, m.MaxTokens))
	}
	return out
}
