package conventional

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownPreset is returned by LookupPreset for an unsupported name.
var ErrUnknownPreset = errors.New("unknown preset")

// Bump is a recommended release category.
type Bump string

const (
	BumpNone  Bump = ""
	BumpPatch Bump = "patch"
	BumpMinor Bump = "minor"
	BumpMajor Bump = "major"
)

const (
	PresetAngular             = "angular"
	PresetConventionalCommits = "conventionalcommits"
)

var levels = []Bump{BumpMajor, BumpMinor, BumpPatch}

// Preset bundles the parsing grammar and the bump rules of a convention.
type Preset struct {
	Name         string
	Parser       ParserOptions
	FeatureTypes []string
	// PreMajor shifts every bump one level down, for projects still below 1.0.0
	// that do not want breaking changes to leave the 0.x range.
	PreMajor bool
}

// LookupPreset returns a built-in preset. An empty name selects conventionalcommits.
func LookupPreset(name string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PresetConventionalCommits:
		return Preset{
			Name:         PresetConventionalCommits,
			Parser:       DefaultParserOptions(),
			FeatureTypes: []string{"feat", "feature"},
		}, nil
	case PresetAngular:
		return Preset{
			Name: PresetAngular,
			Parser: ParserOptions{
				HeaderPattern: `^(\w*)(?:\((.*)\))?: (.*)$`,
				NoteKeywords:  append([]string(nil), defaultNoteKeywords...),
			},
			FeatureTypes: []string{"feat"},
		}, nil
	default:
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
}

// WhatBump classifies a batch of parsed commits: any breaking change is a
// major, any feature a minor, anything else a patch. No commits means no bump.
// The returned level is 0 for major, 1 for minor, 2 for patch and -1 for none.
func (p Preset) WhatBump(commits []Commit) (Bump, int, string) {
	if len(commits) == 0 {
		return BumpNone, -1, "There are no commits"
	}

	breakings, features := 0, 0
	for _, c := range commits {
		if c.Breaking {
			breakings++
		} else if slices.Contains(p.FeatureTypes, c.Type) {
			features++
		}
	}

	level := 2
	if breakings > 0 {
		level = 0
	} else if features > 0 {
		level = 1
	}
	if p.PreMajor && level < 2 {
		level++
	}

	verb, suffix := "are", "S"
	if breakings == 1 {
		verb, suffix = "is", ""
	}
	reason := fmt.Sprintf("There %s %d BREAKING CHANGE%s and %d features", verb, breakings, suffix, features)
	return levels[level], level, reason
}
