package unitfile

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// loadOptions match unit file syntax: '=' is the only delimiter, '#' and ';'
// start comments only at the beginning of a line, and a key may repeat.
var loadOptions = ini.LoadOptions{
	KeyValueDelimiters:         "=",
	IgnoreInlineComment:        true,
	AllowShadows:               true,
	AllowDuplicateShadowValues: true,
}

// SyntaxError is returned by Parse when the text is not a well-formed unit file.
type SyntaxError struct {
	// Line is the zero-based offending line, or -1 when it cannot be located.
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	msg := strings.TrimSpace(e.Err.Error())
	if e.Line < 0 {
		return msg
	}
	return fmt.Sprintf("line %d: %s", e.Line+1, msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Unit is a successfully parsed unit file.
type Unit struct {
	file *ini.File
}

// Parse checks that text is a well-formed unit file and returns its
// section/key/value view.
func Parse(text string) (*Unit, error) {
	f, err := ini.LoadSources(loadOptions, []byte(text))
	if err != nil {
		return nil, &SyntaxError{Line: locate(text, err), Err: err}
	}
	return &Unit{file: f}, nil
}

// Sections returns the section names in file order, excluding the implicit
// default section that holds keys written before the first header.
func (u *Unit) Sections() []string {
	var names []string
	for _, s := range u.file.Sections() {
		if s.Name() == ini.DefaultSection {
			continue
		}
		names = append(names, s.Name())
	}
	return names
}

// Get returns the value of key in section. When a key is assigned more than
// once the last assignment wins.
func (u *Unit) Get(section, key string) (string, bool) {
	s, err := u.file.GetSection(section)
	if err != nil {
		return "", false
	}
	k, err := s.GetKey(key)
	if err != nil {
		return "", false
	}
	values := k.ValueWithShadows()
	if len(values) == 0 {
		return k.Value(), true
	}
	return values[len(values)-1], true
}

// Keys returns the key names of section in file order.
func (u *Unit) Keys(section string) []string {
	s, err := u.file.GetSection(section)
	if err != nil {
		return nil
	}
	return s.KeyStrings()
}

// locate finds the line ini.v1 rejected. The parser reports the offending
// line's text rather than its number, so match it back against the document.
func locate(text string, err error) int {
	var offending string
	var delim ini.ErrDelimiterNotFound
	var empty ini.ErrEmptyKeyName
	switch {
	case errors.As(err, &delim):
		offending = delim.Line
	case errors.As(err, &empty):
		offending = empty.Line
	default:
		_, after, ok := strings.Cut(err.Error(), "unclosed section: ")
		if !ok {
			return -1
		}
		offending = after
	}

	offending = strings.TrimSpace(offending)
	for i, line := range Lines(text) {
		if strings.TrimSpace(line) == offending {
			return i
		}
	}
	return -1
}
