// Package trie implements the prefix-search index over book titles.
//
// Every prefix of every inserted title maps to the set of full titles that
// share it. Keys are normalized (lower-cased) runes; stored titles keep the
// casing they were inserted with. The index is append-only and is rebuilt
// from the catalog on each start, never persisted.
package trie

import (
	"sort"
	"unicode/utf8"

	"bookshelf/internal/normalizer"
)

// node is a single position in the prefix tree.
type node struct {
	children map[rune]*node
	terminal bool
	// through holds the original-case titles whose path passes through this
	// node. Repeated inserts append again; readers deduplicate.
	through []string
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// Index is a case-insensitive prefix index over titles.
// It is not safe for concurrent use; the owner serializes writers.
type Index struct {
	root *node
}

// New creates an empty Index whose root represents the empty prefix.
func New() *Index {
	return &Index{root: newNode()}
}

// Insert adds a title to the index.
// The title is normalized for traversal only; the value stored along the
// path is the title exactly as given. An empty title marks the root as
// terminal and changes nothing else structurally.
func (idx *Index) Insert(title string) {
	current := idx.root
	current.through = append(current.through, title)

	for _, ch := range symbols(title) {
		next, exists := current.children[ch]
		if !exists {
			next = newNode()
			current.children[ch] = next
		}
		current = next
		current.through = append(current.through, title)
	}
	current.terminal = true
}

// Query returns the distinct titles that start with prefix, compared
// case-insensitively. A prefix with no completions yields an empty slice.
// The empty prefix yields every title. Results are sorted for stable output;
// callers should treat them as a set.
func (idx *Index) Query(prefix string) []string {
	n := idx.find(prefix)
	if n == nil {
		return []string{}
	}
	return dedup(n.through)
}

// Contains reports whether title was inserted, compared case-insensitively.
func (idx *Index) Contains(title string) bool {
	n := idx.find(title)
	return n != nil && n.terminal
}

// Len returns the number of distinct titles in the index.
func (idx *Index) Len() int {
	return len(dedup(idx.root.through))
}

// find walks the normalized key and returns the node it ends on, or nil.
func (idx *Index) find(key string) *node {
	current := idx.root
	for _, ch := range symbols(key) {
		next, exists := current.children[ch]
		if !exists {
			return nil
		}
		current = next
	}
	return current
}

// symbols splits the normalized key into the runes the tree branches on.
// A byte that is not valid UTF-8 gets its own negative symbol, so two
// different invalid bytes never share a path with each other or with
// utf8.RuneError.
func symbols(key string) []rune {
	norm := normalizer.Title(key)
	out := make([]rune, 0, len(norm))
	for i := 0; i < len(norm); {
		r, size := utf8.DecodeRuneInString(norm[i:])
		if r == utf8.RuneError && size == 1 {
			r = -1 - rune(norm[i])
		}
		out = append(out, r)
		i += size
	}
	return out
}

func dedup(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
