package index

// Posting records the occurrences of one term in one document.
type Posting struct {
	Doc       uint32   `json:"d"`
	Frequency uint32   `json:"f"`
	Positions []uint32 `json:"p,omitempty"`
}

// PostingList is sorted by Doc.
type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}
