package lib

import (
	"errors"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

var ErrInvalidPage = errors.New("skip and limit must be non-negative integers")

// ParsePage reads skip/limit query values. Empty values take the defaults and
// limit is capped at MaxLimit. A limit of 0 is kept and yields an empty page.
func ParsePage(skip, limit string) (int, int, error) {
	offset, size := 0, DefaultLimit
	if s := strings.TrimSpace(skip); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, ErrInvalidPage
		}
		offset = n
	}
	if s := strings.TrimSpace(limit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, ErrInvalidPage
		}
		size = n
	}
	if size > MaxLimit {
		size = MaxLimit
	}
	return offset, size, nil
}

// ParseID parses a positive numeric path id.
func ParseID(raw string) (uint, bool) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// HTMLToMarkdown converts an HTML fragment to markdown. On conversion failure
// the input is returned unchanged.
func HTMLToMarkdown(html string) string {
	content, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return html
	}
	return strings.TrimSpace(content)
}
