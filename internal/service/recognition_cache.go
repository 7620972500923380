package service

import (
	"sync"

	"tallyocr/internal/domain"
)

// recognitionCache memoizes recognizer output against the SHA-256 digest of
// the image bytes, so re-uploading the same photo never costs a second model
// call.
type recognitionCache struct {
	mu       sync.RWMutex
	byDigest map[string]*domain.RecognizedDocument
}

func newRecognitionCache() *recognitionCache {
	return &recognitionCache{byDigest: make(map[string]*domain.RecognizedDocument)}
}

func (c *recognitionCache) get(digest string) (*domain.RecognizedDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.byDigest[digest]
	return doc, ok
}

func (c *recognitionCache) put(digest string, doc *domain.RecognizedDocument) {
	c.mu.Lock()
	c.byDigest[digest] = doc
	c.mu.Unlock()
}
