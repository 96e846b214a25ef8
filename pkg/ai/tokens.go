package ai

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const truncationMarker = "\n... [output truncated] ...\n"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// encoding lazily loads the cl100k_base tokenizer. A load failure (no
// cached BPE data, offline) degrades to a character heuristic instead of
// failing the request.
func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		enc, _ = tiktoken.GetEncoding("cl100k_base")
	})
	return enc
}

// TruncateToBudget fits text inside a token budget by keeping the head
// and tail and dropping the middle. Model output tends to carry its
// metrics near the end, so the tail matters more than the middle.
func TruncateToBudget(text string, budget int) string {
	if budget <= 0 {
		return text
	}

	e := encoding()
	if e == nil {
		return truncateByChars(text, budget*4)
	}

	tokens := e.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}

	head := budget * 2 / 3
	tail := budget - head
	return e.Decode(tokens[:head]) + truncationMarker + e.Decode(tokens[len(tokens)-tail:])
}

func truncateByChars(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	head := limit * 2 / 3
	tail := limit - head
	return strings.TrimRight(text[:head], " ") + truncationMarker + text[len(text)-tail:]
}
