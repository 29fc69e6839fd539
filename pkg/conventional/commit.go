// Package conventional parses commit messages that follow the Conventional
// Commits convention and recommends a semantic version bump for a batch of them.
package conventional

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

const (
	defaultHeaderPattern         = `^(\w*)(?:\((.*)\))?!?: (.*)$`
	defaultBreakingHeaderPattern = `^(\w*)(?:\((.*)\))?!: (.*)$`

	// BreakingChangeNote is the canonical title of a breaking change note.
	BreakingChangeNote = "BREAKING CHANGE"
)

var defaultNoteKeywords = []string{BreakingChangeNote, "BREAKING-CHANGE"}

// ParserOptions customizes how a commit message is split into its parts.
//
// HeaderPattern must capture type, scope and subject in its first three
// groups. BreakingHeaderPattern, when set, marks headers that announce a
// breaking change on their own (e.g. "feat!: drop v1 API").
type ParserOptions struct {
	HeaderPattern         string   `yaml:"headerPattern,omitempty" json:"headerPattern,omitempty"`
	BreakingHeaderPattern string   `yaml:"breakingHeaderPattern,omitempty" json:"breakingHeaderPattern,omitempty"`
	NoteKeywords          []string `yaml:"noteKeywords,omitempty" json:"noteKeywords,omitempty"`
}

// Merge returns o with every unset field taken from base.
func (o ParserOptions) Merge(base ParserOptions) ParserOptions {
	if o.HeaderPattern == "" {
		o.HeaderPattern = base.HeaderPattern
	}
	if o.BreakingHeaderPattern == "" {
		o.BreakingHeaderPattern = base.BreakingHeaderPattern
	}
	if len(o.NoteKeywords) == 0 {
		o.NoteKeywords = base.NoteKeywords
	}
	return o
}

// DefaultParserOptions returns the conventionalcommits header grammar.
func DefaultParserOptions() ParserOptions {
	return ParserOptions{
		HeaderPattern:         defaultHeaderPattern,
		BreakingHeaderPattern: defaultBreakingHeaderPattern,
		NoteKeywords:          append([]string(nil), defaultNoteKeywords...),
	}
}

// Note is a footer such as "BREAKING CHANGE: removed the foo flag".
type Note struct {
	Title string
	Text  string
}

// Commit is the structured form of a commit message.
type Commit struct {
	Header   string
	Type     string // Empty when the header does not follow the convention.
	Scope    string
	Subject  string
	Body     string
	Notes    []Note
	Breaking bool
}

var patternCache sync.Map // pattern string -> *regexp.Regexp

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid commit pattern %q: %w", pattern, err)
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// Parse splits message into a Commit. A header that does not match the
// convention is not an error: the returned Commit simply has no Type. Errors are
// reserved for unusable options.
//
// Zero options select the conventionalcommits grammar. A custom HeaderPattern
// without a BreakingHeaderPattern disables "!" detection.
func Parse(message string, opts ParserOptions) (Commit, error) {
	if opts.HeaderPattern == "" {
		opts = opts.Merge(DefaultParserOptions())
	}
	if len(opts.NoteKeywords) == 0 {
		opts.NoteKeywords = defaultNoteKeywords
	}
	header, body, _ := strings.Cut(strings.TrimSpace(strings.ReplaceAll(message, "\r\n", "\n")), "\n")
	c := Commit{
		Header: strings.TrimSpace(header),
		Body:   strings.TrimSpace(body),
	}

	headerRe, err := compile(opts.HeaderPattern)
	if err != nil {
		return c, err
	}
	if m := headerRe.FindStringSubmatch(c.Header); m != nil {
		c.Type = group(m, 1)
		c.Scope = group(m, 2)
		c.Subject = group(m, 3)
	}

	c.Notes = parseNotes(c.Body, opts.NoteKeywords)
	c.Breaking = len(c.Notes) > 0

	if opts.BreakingHeaderPattern != "" {
		breakingRe, err := compile(opts.BreakingHeaderPattern)
		if err != nil {
			return c, err
		}
		if breakingRe.MatchString(c.Header) && len(c.Notes) == 0 {
			c.Breaking = true
			c.Notes = append(c.Notes, Note{Title: BreakingChangeNote, Text: c.Subject})
		}
	}
	return c, nil
}

func group(m []string, i int) string {
	if i < len(m) {
		return m[i]
	}
	return ""
}

// parseNotes collects "KEYWORD: text" footers. A note continues on the
// following lines until a blank line or the next note.
func parseNotes(body string, keywords []string) []Note {
	if body == "" {
		return nil
	}
	var notes []Note
	var current *Note
	for _, line := range strings.Split(body, "\n") {
		if kw, text, ok := noteStart(line, keywords); ok {
			notes = append(notes, Note{Title: kw, Text: text})
			current = &notes[len(notes)-1]
			continue
		}
		if current == nil {
			continue
		}
		if strings.TrimSpace(line) == "" {
			current = nil
			continue
		}
		current.Text = strings.TrimSpace(current.Text + "\n" + line)
	}
	return notes
}

func noteStart(line string, keywords []string) (string, string, bool) {
	for _, kw := range keywords {
		if rest, ok := strings.CutPrefix(line, kw+":"); ok {
			return kw, strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}
