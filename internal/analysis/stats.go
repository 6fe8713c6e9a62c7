package analysis

import (
	"strings"
	"unicode/utf8"
)

// TextStats holds descriptive statistics over the extracted text. They are
// informational only and never block downstream processing.
type TextStats struct {
	WordCount           int     `json:"word_count"`
	SentenceCount       int     `json:"sentence_count"`
	AvgWordsPerSentence float64 `json:"avg_words_per_sentence"`
	CharCount           int     `json:"char_count"`
}

// ComputeStats counts whitespace-delimited words, period-delimited sentences
// (floored at 1 so the average is always defined), and characters.
func ComputeStats(text string) TextStats {
	wordCount := len(strings.Fields(text))

	sentenceCount := 0
	for _, s := range strings.Split(strings.ReplaceAll(text, "\n", " "), ".") {
		if strings.TrimSpace(s) != "" {
			sentenceCount++
		}
	}
	if sentenceCount < 1 {
		sentenceCount = 1
	}

	return TextStats{
		WordCount:           wordCount,
		SentenceCount:       sentenceCount,
		AvgWordsPerSentence: float64(wordCount) / float64(sentenceCount),
		CharCount:           utf8.RuneCountInString(text),
	}
}
