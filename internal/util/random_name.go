package util

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var adjectives = []string{
	"Fast", "Slow", "Quick", "Speedy", "Gracious", "Happy", "Funny", "Red", "Blue", "Green",
	"Orange", "Purple", "Fuzzy", "Smiling", "Tall", "Grand", "Prime", "Sharp", "Flat", "Folded",
	"Jagged", "Polished", "Rolling", "Cutting", "Covering", "Leaping",
}

var nouns = []string{
	"Pebble", "Boulder", "Flint", "Granite", "Shears", "Blade", "Razor", "Clipper", "Scroll",
	"Parchment", "Origami", "Envelope", "Kite", "Lantern", "Quarry", "Tailor", "Scribe",
}

var (
	random     = rand.New(rand.NewSource(time.Now().UnixNano())) // nolint:gosec
	randomLock sync.Mutex
)

// GetRandomName returns a random guest name by combining an adjective with a noun
func GetRandomName() string {
	randomLock.Lock()
	defer randomLock.Unlock()

	adjectivesIndex := random.Intn(len(adjectives))
	nounsIndex := random.Intn(len(nouns))

	return fmt.Sprintf("%s %s", adjectives[adjectivesIndex], nouns[nounsIndex])
}
