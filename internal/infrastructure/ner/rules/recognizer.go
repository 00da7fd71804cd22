// Package rules is an offline organization recognizer. It finds runs of
// capitalized words closed by a corporate designator such as "Inc." or
// "Corporation". Recall is modest, but it needs no model and is deterministic.
package rules

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

var designators = map[string]struct{}{
	"inc": {}, "inc.": {}, "incorporated": {},
	"corp": {}, "corp.": {}, "corporation": {},
	"company": {}, "co.": {},
	"ltd": {}, "ltd.": {}, "limited": {},
	"llc": {}, "l.l.c.": {}, "plc": {}, "lp": {}, "l.p.": {},
	"enterprise": {}, "enterprises": {},
	"holdings": {}, "group": {},
}

var connectors = map[string]struct{}{
	"of": {}, "and": {}, "&": {}, "the": {}, "de": {},
}

const maxNameWords = 8

type Recognizer struct{}

func NewRecognizer() *Recognizer {
	return &Recognizer{}
}

// Organizations returns organization names in order of first appearance.
func (r *Recognizer) Organizations(ctx context.Context, text string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, name := range scanLine(line) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out, nil
}

type scanner struct {
	run []string
	out []string
}

func scanLine(line string) []string {
	s := &scanner{}
	for _, raw := range strings.Fields(line) {
		word := strings.TrimRight(strings.TrimLeft(raw, `"'(“`), `"')”;:`)
		bare := strings.TrimRight(word, ",")
		if bare == "" {
			s.flush()
			continue
		}

		if n := len(s.run); n > 0 {
			last := s.run[n-1]
			lastBare := strings.TrimRight(last, ",")
			switch {
			case isDesignator(bare):
				// "Acme Holdings, Inc." keeps going through the comma.
			case isDesignator(lastBare), strings.HasSuffix(last, ","):
				s.flush()
			}
		}

		switch {
		case capitalized(bare):
			s.run = append(s.run, word)
		case len(s.run) > 0 && isConnector(bare):
			s.run = append(s.run, word)
		default:
			s.flush()
			continue
		}
		if len(s.run) > maxNameWords {
			s.run = s.run[1:]
		}
	}
	s.flush()
	return s.out
}

// flush emits the longest prefix of the current run that ends with a designator.
func (s *scanner) flush() {
	run := s.run
	s.run = nil

	end := -1
	for i, w := range run {
		if isDesignator(strings.TrimRight(w, ",")) {
			end = i
		}
	}
	if end < 0 {
		return
	}
	run = run[:end+1]
	for len(run) > 0 && isConnector(run[0]) {
		run = run[1:]
	}
	if len(run) < 2 {
		return
	}
	s.out = append(s.out, strings.TrimRight(strings.Join(run, " "), ","))
}

func isDesignator(word string) bool {
	_, ok := designators[strings.ToLower(word)]
	return ok
}

func isConnector(word string) bool {
	_, ok := connectors[strings.ToLower(word)]
	return ok
}

func capitalized(word string) bool {
	r, _ := utf8.DecodeRuneInString(word)
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}
