package input

import (
	"bufio"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Source owns standard input for the whole run; the secret line, when
// requested, is read before any batch line.
type Source struct {
	reader *bufio.Reader
	fd     int
	tty    bool
}

func NewSource(r io.Reader) *Source {
	src := &Source{reader: bufio.NewReader(r), fd: -1}
	if f, ok := r.(*os.File); ok {
		fd := int(f.Fd())
		if term.IsTerminal(fd) {
			src.fd = fd
			src.tty = true
		}
	}
	return src
}

func (s *Source) IsTerminal() bool { return s.tty }

// ReadSecretLine suppresses echo on a terminal. An empty line is a valid
// empty secret; only input that ends before any line returns io.EOF.
func (s *Source) ReadSecretLine() (string, error) {
	if s.tty {
		secret, err := term.ReadPassword(s.fd)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	line, err := s.reader.ReadString('\n')
	if err == io.EOF && line == "" {
		return "", io.EOF
	}
	if err != nil && err != io.EOF {
		return "", err
	}
	return trimLine(line), nil
}

// A final line without a newline is still returned before io.EOF.
func (s *Source) NextLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", io.EOF
		}
		return trimLine(line), nil
	}
	if err != nil {
		return "", err
	}
	return trimLine(line), nil
}

func trimLine(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
