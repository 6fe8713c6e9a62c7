package retrieval

import "strings"

// Defaults for Chunk. Sized for embedding models with small context
// windows; the overlap keeps sentences that straddle a boundary findable
// from both sides.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunk splits text into pieces of at most size runes, breaking on word
// boundaries, with roughly overlap runes repeated between neighbours.
// Blank input yields nil. size must be positive; overlap is clamped below
// size.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var cur []string
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(cur, " "))

		// Carry trailing words into the next chunk until the overlap
		// budget is spent.
		var kept []string
		keptLen := 0
		for i := len(cur) - 1; i >= 0; i-- {
			w := cur[i]
			if keptLen+len([]rune(w))+1 > overlap {
				break
			}
			kept = append([]string{w}, kept...)
			keptLen += len([]rune(w)) + 1
		}
		cur = kept
		curLen = keptLen
	}

	for _, w := range words {
		wLen := len([]rune(w))
		if curLen > 0 && curLen+wLen+1 > size {
			flush()
		}
		cur = append(cur, w)
		curLen += wLen + 1
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}

	// The overlap carry can leave a final chunk that is a suffix of the
	// previous one; drop it.
	if n := len(chunks); n > 1 && strings.HasSuffix(chunks[n-2], chunks[n-1]) {
		chunks = chunks[:n-1]
	}
	return chunks
}
