package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/fastfield"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
)

// Reader serves one immutable segment file. Postings are read on demand;
// the dictionary, field norms, fast fields and stored documents are loaded
// at open time. A Reader is safe for concurrent use.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	norms    []uint32
	fast     *fastfield.Readers
	docs     []schema.Document
}

// OpenReader opens the segment at path and verifies its checksum.
func OpenReader(path string, s *schema.Schema) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := load(f, s)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment %s: %w", filepath.Base(path), err)
	}
	r.filePath = path
	return r, nil
}

func load(f *os.File, s *schema.Schema) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size < int64(HeaderSize+FooterSize) {
		return nil, fmt.Errorf("file too small: %w", apperrors.ErrCorruptSegment)
	}

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("bad magic bytes %x: %w", header.Magic, apperrors.ErrCorruptSegment)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported format version %d: %w", header.Version, apperrors.ErrCorruptSegment)
	}
	bodyEnd := size - int64(FooterSize)
	for _, sec := range header.sections() {
		if sec.Offset < int64(HeaderSize) || sec.Size < 0 || sec.Offset+sec.Size > bodyEnd {
			return nil, fmt.Errorf("section out of bounds: %w", apperrors.ErrCorruptSegment)
		}
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, bodyEnd); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	crc := crc32.NewIEEE()
	if _, err := io.Copy(crc, io.NewSectionReader(f, int64(HeaderSize), bodyEnd-int64(HeaderSize))); err != nil {
		return nil, fmt.Errorf("checksumming segment: %w", err)
	}
	if crc.Sum32() != binary.LittleEndian.Uint32(footer[0:4]) {
		return nil, fmt.Errorf("checksum mismatch: %w", apperrors.ErrCorruptSegment)
	}

	r := &Reader{file: f, header: header}

	dictBytes, err := r.readSection(header.Dict)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	if err := json.Unmarshal(dictBytes, &r.dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}

	normBytes, err := r.readSection(header.Norms)
	if err != nil {
		return nil, fmt.Errorf("reading field norms: %w", err)
	}
	if len(normBytes) != 4*int(header.DocCount) {
		return nil, fmt.Errorf("field norms length: %w", apperrors.ErrCorruptSegment)
	}
	r.norms = make([]uint32, header.DocCount)
	for i := range r.norms {
		r.norms[i] = binary.LittleEndian.Uint32(normBytes[4*i:])
	}

	fastBlock, err := r.readSection(header.Fast)
	if err != nil {
		return nil, fmt.Errorf("reading fast fields: %w", err)
	}
	fastBytes, err := decompressBlock(fastBlock)
	if err != nil {
		return nil, fmt.Errorf("fast fields: %w", err)
	}
	if r.fast, err = fastfield.Open(s, fastBytes); err != nil {
		return nil, err
	}

	storeBlock, err := r.readSection(header.Store)
	if err != nil {
		return nil, fmt.Errorf("reading stored documents: %w", err)
	}
	storeBytes, err := decompressBlock(storeBlock)
	if err != nil {
		return nil, fmt.Errorf("stored documents: %w", err)
	}
	if err := json.Unmarshal(storeBytes, &r.docs); err != nil {
		return nil, fmt.Errorf("parsing stored documents: %w", err)
	}
	if len(r.docs) != int(header.DocCount) {
		return nil, fmt.Errorf("stored document count: %w", apperrors.ErrCorruptSegment)
	}
	return r, nil
}

func (r *Reader) readSection(s Section) ([]byte, error) {
	buf := make([]byte, s.Size)
	if _, err := r.file.ReadAt(buf, s.Offset); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Reader) lookup(term string) (DictEntry, bool) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return DictEntry{}, false
	}
	return r.dict[idx], true
}

// Postings returns the postings of a normalized term, or nil when the term
// does not occur in the segment.
func (r *Reader) Postings(term string) (index.PostingList, error) {
	entry, ok := r.lookup(term)
	if !ok {
		return nil, nil
	}
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.Postings.Offset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	return postings, nil
}

// DocFreq returns the number of documents containing term.
func (r *Reader) DocFreq(term string) int {
	entry, _ := r.lookup(term)
	return entry.DocFreq
}

// FieldNorm returns the number of indexed tokens of doc.
func (r *Reader) FieldNorm(doc uint32) uint32 {
	return r.norms[doc]
}

// Doc returns the stored fields of doc.
func (r *Reader) Doc(doc uint32) (schema.Document, error) {
	if doc >= r.header.DocCount {
		return schema.Document{}, apperrors.Newf(apperrors.ErrNotFound, http.StatusNotFound, "document %d not in segment %s", doc, r.Name())
	}
	return r.docs[doc], nil
}

func (r *Reader) FastFields() *fastfield.Readers {
	return r.fast
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

// TotalTokens is the sum of the field norms of every document.
func (r *Reader) TotalTokens() uint64 {
	return r.header.TotalTokens
}

// Name returns the segment file name.
func (r *Reader) Name() string {
	return filepath.Base(r.filePath)
}

func (r *Reader) Close() error {
	return r.file.Close()
}
