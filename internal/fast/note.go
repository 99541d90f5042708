package fast

import (
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// NormalizeNote trims surrounding whitespace and converts to NFC so that
// composed and decomposed input are stored and measured identically.
func NormalizeNote(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// NoteLength counts user-perceived characters (extended grapheme clusters).
// A family emoji built from several code points counts as one.
func NoteLength(s string) int {
	return uniseg.GraphemeClusterCount(s)
}
