package text

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/sign"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func TestAccumulator_DebouncedWord(t *testing.T) {
	a := NewAccumulator(sign.DefaultCooldown)

	assert.True(t, a.Offer('H', at(0)))
	assert.False(t, a.Offer('H', at(200)), "held letter inside cool-down")
	assert.True(t, a.Offer('A', at(1800)))

	assert.Equal(t, "HA", a.Snapshot().CurrentWord)
}

func TestAccumulator_RepeatAfterCooldown(t *testing.T) {
	a := NewAccumulator(sign.DefaultCooldown)

	a.Offer('B', at(0))
	a.Offer('B', at(700))
	assert.Equal(t, "B", a.Snapshot().CurrentWord)

	a.Offer('B', at(1600))
	assert.Equal(t, "BB", a.Snapshot().CurrentWord)
}

func TestAccumulator_AbsenceAllowsRepeat(t *testing.T) {
	a := NewAccumulator(sign.DefaultCooldown)

	a.Offer('D', at(0))
	a.Absent()
	a.Offer('D', at(400))

	assert.Equal(t, "DD", a.Snapshot().CurrentWord)
	assert.Equal(t, at(400), a.LastAcceptedAt())
}

func TestAccumulator_AppendSymbol(t *testing.T) {
	a := NewAccumulator(0)

	a.AppendSymbol('W')
	a.AppendSymbol(sign.None)
	a.AppendSymbol('?')
	a.AppendSymbol('I')

	assert.Equal(t, "WI", a.Snapshot().CurrentWord)
	assert.Equal(t, sign.None, a.LastSymbol(), "direct appends bypass the gate")
}

func TestAccumulator_CommitWord(t *testing.T) {
	t.Run("empty word is a no-op", func(t *testing.T) {
		a := NewAccumulator(0)
		a.AppendSymbol('A')
		_, ok := a.CommitWord()
		require.True(t, ok)

		before := a.Snapshot()
		word, ok := a.CommitWord()
		assert.False(t, ok)
		assert.Empty(t, word)
		assert.Equal(t, before, a.Snapshot())
	})

	t.Run("words are joined by one space", func(t *testing.T) {
		a := NewAccumulator(0)
		for _, w := range []string{"HA", "I", "UV"} {
			for _, r := range w {
				a.AppendSymbol(sign.Symbol(r))
			}
			got, ok := a.CommitWord()
			require.True(t, ok)
			assert.Equal(t, w, got)
		}

		want := Snapshot{CurrentWord: "", Sentence: "HA I UV"}
		if diff := cmp.Diff(want, a.Snapshot()); diff != "" {
			t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("commit forgets the last symbol", func(t *testing.T) {
		a := NewAccumulator(sign.DefaultCooldown)
		a.Offer('I', at(0))
		a.CommitWord()

		assert.Equal(t, sign.None, a.LastSymbol())
		assert.True(t, a.Offer('I', at(100)), "same letter may start the next word")
	})
}

func TestAccumulator_ClearWord(t *testing.T) {
	a := NewAccumulator(sign.DefaultCooldown)
	a.Offer('A', at(0))
	a.CommitWord()
	a.Offer('B', at(100))

	a.ClearWord()

	assert.Equal(t, Snapshot{Sentence: "A"}, a.Snapshot())
	assert.Equal(t, sign.None, a.LastSymbol())
	assert.True(t, a.Offer('B', at(200)))
}

func TestAccumulator_ClearSentence(t *testing.T) {
	a := NewAccumulator(sign.DefaultCooldown)
	a.Offer('A', at(0))
	a.CommitWord()
	a.Offer('B', at(100))

	a.ClearSentence()

	assert.Equal(t, Snapshot{}, a.Snapshot())
	assert.Equal(t, sign.Symbol('B'), a.LastSymbol(), "clearing the sentence leaves the gate alone")

	a.AppendSymbol('U')
	word, ok := a.CommitWord()
	require.True(t, ok)
	assert.Equal(t, "U", word)
	assert.Equal(t, "U", a.Snapshot().Sentence, "no leading space after clearing")
}
