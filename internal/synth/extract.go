package synth

import (
	"fmt"
	"strings"
)

// Candidate is one executable query or script taken from an oracle response.
type Candidate struct {
	// Body is the trimmed content of the fenced block.
	Body string `json:"body"`
	// Language is the fence info string, possibly empty.
	Language string `json:"language,omitempty"`
}

type fence struct {
	char  byte
	width int
	info  string
}

// openingFence reports whether line opens a fenced block. Up to three spaces
// of indentation are allowed, as in CommonMark.
func openingFence(line string) (fence, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
		return fence{}, false
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return fence{}, false
	}
	width := 0
	for width < len(trimmed) && trimmed[width] == c {
		width++
	}
	if width < 3 {
		return fence{}, false
	}
	info := strings.TrimSpace(trimmed[width:])
	if c == '`' && strings.Contains(info, "`") {
		return fence{}, false
	}
	if fields := strings.Fields(info); len(fields) > 0 {
		info = fields[0]
	}
	return fence{char: c, width: width, info: info}, true
}

func (f fence) closes(line string) bool {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return false
	}
	trimmed = strings.TrimRight(trimmed, " \t\r")
	if len(trimmed) < f.width {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != f.char {
			return false
		}
	}
	return true
}

// Extract returns the single candidate in text. The response must contain
// exactly one top-level fenced block; fences nested inside a longer fence are
// part of its body. Zero blocks, several blocks or an unterminated block all
// yield *MalformedGenerationError.
func Extract(text string) (*Candidate, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var (
		blocks  []Candidate
		current *fence
		body    []string
	)
	for _, line := range lines {
		if current == nil {
			if f, ok := openingFence(line); ok {
				current = &f
				body = body[:0]
			}
			continue
		}
		if current.closes(line) {
			blocks = append(blocks, Candidate{
				Body:     strings.TrimSpace(strings.Join(body, "\n")),
				Language: current.info,
			})
			current = nil
			continue
		}
		body = append(body, line)
	}

	if current != nil {
		return nil, &MalformedGenerationError{
			Blocks: len(blocks),
			Reason: "unterminated fenced code block",
			Raw:    text,
		}
	}
	if len(blocks) != 1 {
		return nil, &MalformedGenerationError{
			Blocks: len(blocks),
			Reason: fmt.Sprintf("expected exactly one fenced code block, found %d", len(blocks)),
			Raw:    text,
		}
	}
	return &blocks[0], nil
}
