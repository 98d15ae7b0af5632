package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// decodeCommand accepts either a JSON string split with shell-style quoting
// or a JSON array used verbatim as argv.
func decodeCommand(raw json.RawMessage) (CommandConfig, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var argv []string
		if err := json.Unmarshal(raw, &argv); err != nil {
			return CommandConfig{}, fmt.Errorf("argv array: %w", err)
		}
		for i, arg := range argv {
			if arg == "" {
				return CommandConfig{}, fmt.Errorf("argv[%d] is empty", i)
			}
		}
		return CommandConfig{Raw: strings.Join(argv, " "), Argv: argv}, nil
	}

	var line string
	if err := json.Unmarshal(raw, &line); err != nil {
		return CommandConfig{}, errors.New("must be a string or an array of strings")
	}
	argv, err := splitCommandLine(line)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: line, Argv: argv}, nil
}

// splitCommandLine tokenizes line with single quotes, double quotes, and
// backslash escapes. No expansion is performed.
func splitCommandLine(line string) ([]string, error) {
	var s argvScanner
	for _, r := range strings.TrimSpace(line) {
		s.feed(r)
	}
	return s.finish(line)
}

type argvScanner struct {
	args    []string
	word    strings.Builder
	inWord  bool
	quote   rune
	escaped bool
}

func (s *argvScanner) feed(r rune) {
	if s.escaped {
		s.escaped = false
		s.add(r)
		return
	}
	if r == '\\' && s.quote != '\'' {
		s.escaped = true
		s.inWord = true
		return
	}
	if s.quote != 0 {
		if r == s.quote {
			s.quote = 0
		} else {
			s.add(r)
		}
		return
	}

	switch {
	case r == '\'' || r == '"':
		s.quote = r
		s.inWord = true
	case unicode.IsSpace(r):
		s.end()
	default:
		s.add(r)
	}
}

func (s *argvScanner) add(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

func (s *argvScanner) end() {
	if !s.inWord {
		return
	}
	s.args = append(s.args, s.word.String())
	s.word.Reset()
	s.inWord = false
}

func (s *argvScanner) finish(line string) ([]string, error) {
	switch {
	case s.escaped:
		return nil, fmt.Errorf("trailing backslash in %q", line)
	case s.quote != 0:
		return nil, fmt.Errorf("unterminated %c quote in %q", s.quote, line)
	}
	s.end()
	return s.args, nil
}
