package badwords

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joy095/parking/logger"
)

//go:embed en.txt
var defaultList string

var ErrContainsBadWords = errors.New("text contains inappropriate language")

// badWordsMap is the set of lower-cased words to reject.
var (
	badWordsMap map[string]struct{}
	mu          sync.RWMutex
)

func init() {
	badWordsMap = parse(defaultList)
}

func parse(data string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, line := range strings.Split(data, "\n") {
		if w := strings.ToLower(strings.TrimSpace(line)); w != "" && !strings.HasPrefix(w, "#") {
			words[w] = struct{}{}
		}
	}
	return words
}

// LoadBadWords replaces the built-in list with the words in filename, one per line.
func LoadBadWords(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read bad words file: %w", err)
	}
	words := parse(string(data))

	mu.Lock()
	badWordsMap = words
	mu.Unlock()

	logger.InfoLogger.Infof("Loaded %d bad words from %s", len(words), filename)
	return nil
}

// ContainsBadWords reports whether any word of text is on the list. Words are
// split on anything that is not a letter or digit.
func ContainsBadWords(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})

	mu.RLock()
	defer mu.RUnlock()

	for _, word := range words {
		if _, found := badWordsMap[word]; found {
			logger.InfoLogger.Infof("Bad word detected: %s", word)
			return true
		}
	}
	return false
}

// Check returns ErrContainsBadWords when text fails ContainsBadWords.
func Check(text string) error {
	if ContainsBadWords(text) {
		return ErrContainsBadWords
	}
	return nil
}
