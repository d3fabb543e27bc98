package internal

import (
	"fmt"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// MaxLoggedBodyBytes bounds raw response bodies written to the log.
const MaxLoggedBodyBytes = 2048

// TruncateBody returns body as a string cut to at most limit bytes, never splitting a rune.
// A marker carrying the full body size is appended when anything was dropped.
func TruncateBody(body []byte, limit int) string {
	if limit <= 0 || len(body) <= limit {
		return string(body)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return fmt.Sprintf("%s...(truncated, %s total)", body[:cut], humanize.Bytes(uint64(len(body))))
}
