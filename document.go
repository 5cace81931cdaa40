package mdreveal

import (
	"strings"

	"github.com/google/uuid"
)

// Document is an immutable segmented and tokenized markdown source. ID identifies the
// stream the source belongs to; a scheduler resets its reveal position when a document
// with a different ID is loaded.
type Document struct {
	ID       string
	Source   string
	Segments []Segment
	Tokens   []Token

	opts []TokenizeOption
}

// NewDocument segments and tokenizes markdown as the start of a new stream.
func NewDocument(markdown string, opts ...TokenizeOption) *Document {
	return buildDocument(uuid.NewString(), markdown, opts)
}

func buildDocument(id, markdown string, opts []TokenizeOption) *Document {
	segments := ParseSegments(markdown)
	return &Document{
		ID:       id,
		Source:   markdown,
		Segments: segments,
		Tokens:   Tokenize(segments, opts...),
		opts:     opts,
	}
}

// Extend returns a document for the next snapshot of the same stream. When markdown
// does not continue the current source the result starts a new stream.
func (d *Document) Extend(markdown string) *Document {
	if d == nil {
		return NewDocument(markdown)
	}
	if markdown == d.Source {
		return d
	}
	if !strings.HasPrefix(markdown, d.Source) {
		return buildDocument(uuid.NewString(), markdown, d.opts)
	}
	return buildDocument(d.ID, markdown, d.opts)
}

// Len returns the number of tokens.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Tokens)
}
