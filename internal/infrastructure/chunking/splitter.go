package chunking

import "strings"

// Splitter cuts text into windows of at most ChunkSize characters. Consecutive
// windows share exactly Overlap characters, and a window ends on the last line
// break it contains whenever that still leaves more than Overlap characters in it.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	out := make([]string, 0, len(runes)/(s.ChunkSize-s.Overlap)+1)
	for start := 0; ; {
		end := start + s.ChunkSize
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		if cut := lastBreak(runes[start:end]); cut > s.Overlap {
			end = start + cut
		}
		out = append(out, string(runes[start:end]))
		start = end - s.Overlap
	}
	return out
}

// lastBreak returns the length of the window prefix ending with its last '\n',
// or 0 when the window holds none.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '\n' {
			return i + 1
		}
	}
	return 0
}
