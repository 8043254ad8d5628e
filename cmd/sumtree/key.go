package main

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/jamesainslie/sumtree/pkg/sumtree/hasher"
)

const keyEnv = "SUMTREE_KEY"

// keySource abstracts where a key can come from.
type keySource struct {
	readFile func(string) ([]byte, error)
	getenv   func(string) string
	// prompt is nil when no terminal is available.
	prompt func() ([]byte, error)
}

func defaultKeySource() keySource {
	src := keySource{readFile: os.ReadFile, getenv: os.Getenv}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		src.prompt = func() ([]byte, error) {
			fmt.Fprint(os.Stderr, "Key: ")
			defer fmt.Fprintln(os.Stderr)
			return term.ReadPassword(fd)
		}
	}
	return src
}

// loadKey reads the key for a keyed algorithm: from keyFile, then the
// SUMTREE_KEY variable, then an interactive prompt.
func loadKey(keyFile string) ([]byte, error) {
	return defaultKeySource().load(keyFile)
}

func (s keySource) load(keyFile string) ([]byte, error) {
	if keyFile != "" {
		data, err := s.readFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		key := bytes.TrimRight(data, "\r\n")
		if len(key) == 0 {
			return nil, fmt.Errorf("%w: key file %s is empty", hasher.ErrKeyRequired, keyFile)
		}
		return key, nil
	}

	if v := s.getenv(keyEnv); v != "" {
		return []byte(v), nil
	}

	if s.prompt != nil {
		key, err := s.prompt()
		if err != nil {
			return nil, fmt.Errorf("reading key: %w", err)
		}
		if len(key) > 0 {
			return key, nil
		}
	}
	return nil, hasher.ErrKeyRequired
}
