// Package index builds the in-memory form of a segment: the inverted index
// over every indexed text field, per-document field norms, fast field columns
// and stored documents. Documents get dense local ids in insertion order.
package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/fastfield"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
)

// Snapshot is the frozen content of a SegmentBuilder, ready to be written.
type Snapshot struct {
	NumDocs    uint32
	Terms      []TermEntry
	FieldNorms []uint32
	Stored     []schema.Document
	FastFields []byte
}

type SegmentBuilder struct {
	mu         sync.RWMutex
	schema     *schema.Schema
	analyzer   *tokenizer.Analyzer
	indexed    []schema.Field
	stored     map[schema.Field]bool
	postings   map[string]PostingList
	fieldNorms []uint32
	docs       []schema.Document
	fast       *fastfield.Writer
	size       int64
}

func NewSegmentBuilder(s *schema.Schema, analyzer *tokenizer.Analyzer) *SegmentBuilder {
	b := &SegmentBuilder{
		schema:   s,
		analyzer: analyzer,
		stored:   make(map[schema.Field]bool),
	}
	for _, f := range s.Fields() {
		entry, _ := s.Entry(f)
		if entry.IsIndexed() {
			b.indexed = append(b.indexed, f)
		}
		if entry.IsStored() {
			b.stored[f] = true
		}
	}
	b.reset()
	return b
}

func (b *SegmentBuilder) reset() {
	b.postings = make(map[string]PostingList)
	b.fieldNorms = nil
	b.docs = nil
	b.fast = fastfield.NewWriter(b.schema)
	b.size = 0
}

// AddDocument validates doc against the schema and adds it, returning its
// local id.
func (b *SegmentBuilder) AddDocument(doc schema.Document) (uint32, error) {
	if err := b.schema.Validate(doc); err != nil {
		return 0, err
	}

	// analyze outside the lock; positions continue across values and fields
	termData := make(map[string]*Posting)
	var order []string
	position := uint32(0)
	for _, f := range b.indexed {
		for _, v := range doc.GetAll(f) {
			for _, tok := range b.analyzer.Analyze(v.Str) {
				p, ok := termData[tok.Term]
				if !ok {
					p = &Posting{Positions: make([]uint32, 0, 4)}
					termData[tok.Term] = p
					order = append(order, tok.Term)
				}
				p.Frequency++
				p.Positions = append(p.Positions, position)
				position++
			}
		}
	}

	var stored schema.Document
	for _, fv := range doc.FieldValues {
		if b.stored[fv.Field] {
			stored.FieldValues = append(stored.FieldValues, fv)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	docID := uint32(len(b.fieldNorms))
	for _, term := range order {
		p := termData[term]
		p.Doc = docID
		b.postings[term] = append(b.postings[term], *p)
		b.size += int64(len(term) + len(p.Positions)*4 + 16)
	}
	b.fieldNorms = append(b.fieldNorms, position)
	b.docs = append(b.docs, stored)
	b.fast.Add(doc)
	b.size += int64(64 + 8*len(stored.FieldValues))
	return docID, nil
}

// Search returns the postings of an already normalized term.
func (b *SegmentBuilder) Search(term string) PostingList {
	b.mu.RLock()
	defer b.mu.RUnlock()
	postings := b.postings[term]
	out := make(PostingList, len(postings))
	copy(out, postings)
	return out
}

// Snapshot freezes the builder content with terms sorted. Postings are
// already sorted by doc since ids are assigned in insertion order.
func (b *SegmentBuilder) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	terms := make([]TermEntry, 0, len(b.postings))
	for term, postings := range b.postings {
		terms = append(terms, TermEntry{Term: term, Postings: postings})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Term < terms[j].Term })

	norms := make([]uint32, len(b.fieldNorms))
	copy(norms, b.fieldNorms)
	docs := make([]schema.Document, len(b.docs))
	copy(docs, b.docs)
	return Snapshot{
		NumDocs:    uint32(len(b.fieldNorms)),
		Terms:      terms,
		FieldNorms: norms,
		Stored:     docs,
		FastFields: b.fast.Serialize(),
	}
}

// Size is a rough estimate of the memory held, in bytes.
func (b *SegmentBuilder) Size() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *SegmentBuilder) DocCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.fieldNorms)
}

// Reset drops every buffered document.
func (b *SegmentBuilder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}
