package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/index"
)

// MagicBytes identifies a segment file.
const (
	MagicBytes    uint32 = 0x54445347
	FormatVersion uint32 = 2
	HeaderSize    int    = 128
	FooterSize    int    = 8
	FileExt              = ".seg"
)

// Section locates one region of the file.
type Section struct {
	Offset int64
	Size   int64
}

// SegmentHeader is written at the start of every segment. The sections are
// laid out in the order postings, dictionary, field norms, fast fields,
// stored documents.
type SegmentHeader struct {
	Magic       uint32
	Version     uint32
	TermCount   uint32
	DocCount    uint32
	CreatedAt   int64
	TotalTokens uint64
	Postings    Section
	Dict        Section
	Norms       Section
	Fast        Section
	Store       Section
}

func (h *SegmentHeader) sections() []*Section {
	return []*Section{&h.Postings, &h.Dict, &h.Norms, &h.Fast, &h.Store}
}

func (h *SegmentHeader) encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(buf[24:32], h.TotalTokens)
	off := 32
	for _, s := range h.sections() {
		binary.LittleEndian.PutUint64(buf[off:], uint64(s.Offset))
		binary.LittleEndian.PutUint64(buf[off+8:], uint64(s.Size))
		off += 16
	}
	return buf
}

func decodeHeader(buf []byte) SegmentHeader {
	h := SegmentHeader{
		Magic:       binary.LittleEndian.Uint32(buf[0:4]),
		Version:     binary.LittleEndian.Uint32(buf[4:8]),
		TermCount:   binary.LittleEndian.Uint32(buf[8:12]),
		DocCount:    binary.LittleEndian.Uint32(buf[12:16]),
		CreatedAt:   int64(binary.LittleEndian.Uint64(buf[16:24])),
		TotalTokens: binary.LittleEndian.Uint64(buf[24:32]),
	}
	off := 32
	for _, s := range h.sections() {
		s.Offset = int64(binary.LittleEndian.Uint64(buf[off:]))
		s.Size = int64(binary.LittleEndian.Uint64(buf[off+8:]))
		off += 16
	}
	return h
}

// DictEntry maps a term to its postings offset, length, and document frequency
// in the segment file.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// Writer serialises index snapshots into new segment files.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes segments into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write atomically creates a new segment file from snap. It writes to a .tmp
// file first and renames on success. The footer holds a CRC32 of everything
// between header and footer.
func (w *Writer) Write(snap index.Snapshot) (string, error) {
	if snap.NumDocs == 0 {
		return "", fmt.Errorf("cannot write empty segment")
	}
	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	// names sort in creation order
	stamp := time.Now().UnixNano()
	segmentName := fmt.Sprintf("seg_%020d%s", stamp, FileExt)
	for {
		if _, err := os.Stat(filepath.Join(w.dataDir, segmentName)); os.IsNotExist(err) {
			break
		}
		stamp++
		segmentName = fmt.Sprintf("seg_%020d%s", stamp, FileExt)
	}
	finalPath := filepath.Join(w.dataDir, segmentName)
	tmpPath := finalPath + ".tmp"

	body, header, err := encodeSections(snap)
	if err != nil {
		return "", err
	}
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(body))
	binary.LittleEndian.PutUint32(footer[4:8], MagicBytes)

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()
	for _, part := range [][]byte{header.encode(), body, footer} {
		if _, err := f.Write(part); err != nil {
			os.Remove(tmpPath)
			return "", fmt.Errorf("writing segment: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return segmentName, nil
}

func encodeSections(snap index.Snapshot) ([]byte, SegmentHeader, error) {
	header := SegmentHeader{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		TermCount: uint32(len(snap.Terms)),
		DocCount:  snap.NumDocs,
		CreatedAt: time.Now().Unix(),
	}

	var postings []byte
	dict := make([]DictEntry, 0, len(snap.Terms))
	for _, entry := range snap.Terms {
		data, err := json.Marshal(entry.Postings)
		if err != nil {
			return nil, header, fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Term:       entry.Term,
			PostOffset: int64(len(postings)),
			PostLen:    len(data),
			DocFreq:    len(entry.Postings),
		})
		postings = append(postings, data...)
	}
	dictData, err := json.Marshal(dict)
	if err != nil {
		return nil, header, fmt.Errorf("marshaling dictionary: %w", err)
	}

	norms := make([]byte, 0, 4*len(snap.FieldNorms))
	for _, n := range snap.FieldNorms {
		norms = binary.LittleEndian.AppendUint32(norms, n)
		header.TotalTokens += uint64(n)
	}

	fast, err := compressBlock(snap.FastFields)
	if err != nil {
		return nil, header, fmt.Errorf("compressing fast fields: %w", err)
	}
	storeData, err := json.Marshal(snap.Stored)
	if err != nil {
		return nil, header, fmt.Errorf("marshaling stored documents: %w", err)
	}
	store, err := compressBlock(storeData)
	if err != nil {
		return nil, header, fmt.Errorf("compressing stored documents: %w", err)
	}

	var body []byte
	offset := int64(HeaderSize)
	for i, part := range [][]byte{postings, dictData, norms, fast, store} {
		*header.sections()[i] = Section{Offset: offset, Size: int64(len(part))}
		body = append(body, part...)
		offset += int64(len(part))
	}
	return body, header, nil
}
