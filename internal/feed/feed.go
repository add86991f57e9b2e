// Package feed replays a finished document as a live stream of chunks.
package feed

import (
	"context"
	"math/rand/v2"
	"time"
	"unicode/utf8"
)

// Chunk is one piece of a replayed document.
type Chunk struct {
	Index int
	Text  string
	// Last marks the tail chunk.
	Last bool
}

// Split cuts text into chunks of minRunes..maxRunes runes chosen by a generator
// seeded with seed. Chunks never split a rune and concatenate back to text.
func Split(text string, minRunes, maxRunes int, seed uint64) []string {
	if text == "" {
		return nil
	}
	minRunes = max(minRunes, 1)
	maxRunes = max(maxRunes, minRunes)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var chunks []string
	for len(text) > 0 {
		n := minRunes
		if maxRunes > minRunes {
			n += rng.IntN(maxRunes - minRunes + 1)
		}
		cut := 0
		for i := 0; i < n && cut < len(text); i++ {
			_, size := utf8.DecodeRuneInString(text[cut:])
			cut += size
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return chunks
}

// Stream sends chunks on the returned channel, waiting interval plus up to
// jitter between sends. The channel is closed after the last chunk or when
// ctx is done.
func Stream(ctx context.Context, chunks []string, interval, jitter time.Duration) <-chan Chunk {
	out := make(chan Chunk)
	go func() {
		defer close(out)
		for i, text := range chunks {
			if i > 0 {
				delay := interval
				if jitter > 0 {
					delay += rand.N(jitter)
				}
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			select {
			case <-ctx.Done():
				return
			case out <- Chunk{Index: i, Text: text, Last: i == len(chunks)-1}:
			}
		}
	}()
	return out
}
