package interview

import (
	"context"
	"sync"

	"github.com/jamiewalsh/careerprep/internal/speech"
)

// Synthesizer converts interviewer text into a playable audio clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (speech.Clip, error)
}

// Playback is one in-progress audio playback. Done is closed only when
// playback ends naturally, never on Stop. Stop halts playback and releases
// the underlying resource; it is safe to call more than once.
type Playback interface {
	Done() <-chan struct{}
	Stop()
}

// Player starts playback of a clip. Implementations deliver the clip to the
// connected client and report when it has finished playing.
type Player interface {
	Play(clip speech.Clip) (Playback, error)
}

// Utterance reports the fate of one spoken line. Exactly one of its channels
// closes first: Done when playback finishes naturally, Released when the
// bridge stops the playback early, either through Stop or because a newer
// line replaced it.
type Utterance struct {
	done     <-chan struct{}
	released chan struct{}
}

// Done is closed when the playback ends naturally.
func (u *Utterance) Done() <-chan struct{} { return u.done }

// Released is closed when the playback is stopped before finishing.
func (u *Utterance) Released() <-chan struct{} { return u.released }

// AudioBridge speaks interviewer lines and signals playback completion. At
// most one playback is live at a time: starting a new one first stops and
// releases the previous handle.
type AudioBridge struct {
	synth  Synthesizer
	player Player

	mu       sync.Mutex
	current  Playback
	released chan struct{}
}

// NewAudioBridge creates an audio bridge over the given synthesizer and player.
func NewAudioBridge(synth Synthesizer, player Player) *AudioBridge {
	return &AudioBridge{synth: synth, player: player}
}

// Speak synthesizes text and starts playback. Failures are reported as
// AudioUnavailableError and leave no live playback behind.
func (b *AudioBridge) Speak(ctx context.Context, text string) (*Utterance, error) {
	clip, err := b.synth.Synthesize(ctx, text)
	if err != nil {
		return nil, &AudioUnavailableError{Cause: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()

	playback, err := b.player.Play(clip)
	if err != nil {
		return nil, &AudioUnavailableError{Cause: err}
	}
	b.current = playback
	b.released = make(chan struct{})
	return &Utterance{done: playback.Done(), released: b.released}, nil
}

// Stop halts and releases any live playback. Waiters on the playback's
// Utterance are woken through Released.
func (b *AudioBridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *AudioBridge) stopLocked() {
	if b.current == nil {
		return
	}
	b.current.Stop()
	b.current = nil
	close(b.released)
	b.released = nil
}
