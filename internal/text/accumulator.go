// Package text folds accepted sign letters into words and sentences.
package text

import (
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/sign"
)

// Snapshot is the externally visible part of the accumulator state.
type Snapshot struct {
	CurrentWord string `json:"current_word"`
	Sentence    string `json:"sentence"`
}

// Accumulator builds the current word from accepted letters and appends
// committed words to the sentence. It owns the debounce gate, whose last
// symbol and acceptance time are internal state. Every method is total;
// Accumulator is not safe for concurrent use.
type Accumulator struct {
	gate     *sign.Gate
	word     strings.Builder
	sentence strings.Builder
}

// NewAccumulator creates an empty Accumulator whose gate uses cooldown.
func NewAccumulator(cooldown time.Duration) *Accumulator {
	return &Accumulator{gate: sign.NewGate(cooldown)}
}

// Offer passes a raw classification through the gate and appends it to
// the current word if accepted.
func (a *Accumulator) Offer(s sign.Symbol, now time.Time) bool {
	if !a.gate.Accept(s, now) {
		return false
	}
	a.AppendSymbol(s)
	return true
}

// Absent records that the hand left the frame.
func (a *Accumulator) Absent() {
	a.gate.Absent()
}

// AppendSymbol adds s to the current word. None and non-letters are ignored.
func (a *Accumulator) AppendSymbol(s sign.Symbol) {
	if !s.Valid() {
		return
	}
	a.word.WriteRune(rune(s))
}

// CommitWord moves the current word onto the end of the sentence. It
// returns the committed word and true, or "" and false when the word was
// empty, in which case nothing changes.
func (a *Accumulator) CommitWord() (string, bool) {
	if a.word.Len() == 0 {
		return "", false
	}
	word := a.word.String()
	if a.sentence.Len() > 0 {
		a.sentence.WriteByte(' ')
	}
	a.sentence.WriteString(word)
	a.word.Reset()
	a.gate.Forget()
	return word, true
}

// ClearWord discards the current word without committing it.
func (a *Accumulator) ClearWord() {
	a.word.Reset()
	a.gate.Forget()
}

// ClearSentence discards both the sentence and the current word.
func (a *Accumulator) ClearSentence() {
	a.sentence.Reset()
	a.word.Reset()
}

// Snapshot returns a copy of the visible state.
func (a *Accumulator) Snapshot() Snapshot {
	return Snapshot{
		CurrentWord: a.word.String(),
		Sentence:    a.sentence.String(),
	}
}

// LastSymbol returns the gate's last accepted symbol.
func (a *Accumulator) LastSymbol() sign.Symbol {
	return a.gate.LastSymbol()
}

// LastAcceptedAt returns when the gate last accepted a symbol.
func (a *Accumulator) LastAcceptedAt() time.Time {
	return a.gate.LastAcceptedAt()
}
