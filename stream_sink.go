package mdreveal

// Sink receives reveal events from a Scheduler. Calls are made outside the scheduler
// lock, in reveal order, and never concurrently for the same scheduler.
type Sink interface {
	// WriteFrame is called once per revealed token.
	WriteFrame(Frame) error
	// Complete is called once per stream when every token has been revealed.
	Complete() error
	// Stopped is called once with the truncated markdown after a stop request.
	Stopped(truncated string) error
}

// Frame describes a single reveal step.
type Frame struct {
	Document *Document
	// Index is the index of Token in Document.Tokens.
	Index int
	Token Token
	// Revealed is the number of tokens revealed including this one.
	Revealed int
}

// Segment returns the segment owning the frame's token.
func (f Frame) Segment() Segment {
	return f.Document.Segments[f.Token.Segment]
}

// View returns the revealed text grouped by segment index.
func (f Frame) View() map[int]string {
	return GroupRevealed(f.Document.Tokens, f.Revealed)
}
