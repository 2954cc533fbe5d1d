package server

import (
	"sync"

	"go.lsp.dev/protocol"
)

// Document is a snapshot of an open document.
type Document struct {
	URI     protocol.DocumentURI
	Version int32
	Text    string
}

// DocumentStore holds the current text of every open document. Each write
// is stamped with a sequence number so that results computed from an older
// snapshot can be recognised and dropped.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]Document
	seq  uint64
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[protocol.DocumentURI]Document)}
}

// Put stores text as the full content of uri, replacing whatever was there,
// and returns the write's sequence number.
func (s *DocumentStore) Put(uri protocol.DocumentURI, version int32, text string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.docs[uri] = Document{URI: uri, Version: version, Text: text}
	return s.seq
}

// Remove forgets uri and returns the removal's sequence number.
func (s *DocumentStore) Remove(uri protocol.DocumentURI) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	delete(s.docs, uri)
	return s.seq
}

// Get returns the document at uri.
func (s *DocumentStore) Get(uri protocol.DocumentURI) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// Text returns the text of uri, or "" when it is not open.
func (s *DocumentStore) Text(uri protocol.DocumentURI) string {
	doc, _ := s.Get(uri)
	return doc.Text
}

// Len returns the number of open documents.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
