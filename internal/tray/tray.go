// Package tray provides the menu bar interface for mudra.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/pipeline"
)

// maxTitleRunes bounds menu item titles; long sentences keep their tail.
const maxTitleRunes = 40

// Tray is the menu bar icon and menu.
type Tray struct {
	onToggle        func(enabled bool)
	onFinishWord    func()
	onClearSentence func()
	onOpenUI        func()
	onQuit          func()
	enabled         bool
	word            string
	sentence        string
	mu              sync.RWMutex

	// Menu items kept for later updates; nil until the tray is ready.
	menuToggle   *systray.MenuItem
	menuWord     *systray.MenuItem
	menuSentence *systray.MenuItem
}

// New creates a Tray with recognition enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback for the enabled toggle.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnFinishWord sets the callback for the Finish word item.
func (t *Tray) OnFinishWord(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFinishWord = fn
}

// OnClearSentence sets the callback for the Clear sentence item.
func (t *Tray) OnClearSentence(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClearSentence = fn
}

// OnOpenUI sets the callback for the Open UI item.
func (t *Tray) OnOpenUI(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenUI = fn
}

// OnQuit sets the callback for the Quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit is chosen or Stop is called and
// must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Stop removes the tray and makes Run return.
func (t *Tray) Stop() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra sign transcription")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle sign recognition")
	systray.AddSeparator()

	t.menuWord = systray.AddMenuItem(wordTitle(t.word), "Word being signed")
	t.menuWord.Disable()
	t.menuSentence = systray.AddMenuItem(sentenceTitle(t.sentence), "Committed words")
	t.menuSentence.Disable()
	t.mu.Unlock()

	menuFinish := systray.AddMenuItem("Finish word", "Commit the current word")
	menuClear := systray.AddMenuItem("Clear sentence", "Discard the sentence and current word")
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open UI...", "Open the web interface in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuFinish.ClickedCh:
				t.call(func() func() { return t.onFinishWord })
			case <-menuClear.ClickedCh:
				t.call(func() func() { return t.onClearSentence })
			case <-menuOpen.ClickedCh:
				t.call(func() func() { return t.onOpenUI })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Outside the lock; the callback may call back into the tray.
	if callback != nil {
		callback(enabled)
	}
}

// call runs the callback chosen by get without holding the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

// Subscriber updates the word and sentence items from pipeline updates.
func (t *Tray) Subscriber(u pipeline.Update) error {
	t.SetText(u.State.CurrentWord, u.State.Sentence)
	return nil
}

// SetText shows word and sentence in the menu.
func (t *Tray) SetText(word, sentence string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if word != t.word {
		t.word = word
		if t.menuWord != nil {
			t.menuWord.SetTitle(wordTitle(word))
		}
	}
	if sentence != t.sentence {
		t.sentence = sentence
		if t.menuSentence != nil {
			t.menuSentence.SetTitle(sentenceTitle(sentence))
		}
	}
}

// Text returns the word and sentence last shown.
func (t *Tray) Text() (word, sentence string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.word, t.sentence
}

// SetEnabled updates the toggle without firing the callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func wordTitle(word string) string {
	if word == "" {
		return "Word: none"
	}
	return "Word: " + truncateTail(word, maxTitleRunes)
}

func sentenceTitle(sentence string) string {
	if sentence == "" {
		return "Sentence: none"
	}
	return "Sentence: " + truncateTail(sentence, maxTitleRunes)
}

// truncateTail keeps the last n runes of s, prefixed with an ellipsis when
// anything was cut.
func truncateTail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
