package receipt

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Codepage pairs a printer character table (ESC t n) with the single-byte
// charmap used to encode text for it
type Codepage struct {
	Name    string
	Table   byte
	Charmap *charmap.Charmap
}

// DefaultCodepageName is the Greek Windows codepage, which also carries the euro sign
const DefaultCodepageName = "windows-1253"

// Table numbers follow the Epson ESC/POS character code table assignments
var codepages = map[string]Codepage{
	"cp437":        {Name: "cp437", Table: 0, Charmap: charmap.CodePage437},
	"cp850":        {Name: "cp850", Table: 2, Charmap: charmap.CodePage850},
	"cp858":        {Name: "cp858", Table: 19, Charmap: charmap.CodePage858},
	"iso8859-7":    {Name: "iso8859-7", Table: 15, Charmap: charmap.ISO8859_7},
	"windows-1252": {Name: "windows-1252", Table: 16, Charmap: charmap.Windows1252},
	"windows-1253": {Name: "windows-1253", Table: 47, Charmap: charmap.Windows1253},
}

// LookupCodepage finds a codepage by name (case-insensitive)
func LookupCodepage(name string) (Codepage, bool) {
	cp, ok := codepages[strings.ToLower(strings.TrimSpace(name))]
	return cp, ok
}

// DefaultCodepage returns the default Greek codepage
func DefaultCodepage() Codepage {
	return codepages[DefaultCodepageName]
}

// CodepageNames lists the supported codepage names
func CodepageNames() []string {
	names := make([]string, 0, len(codepages))
	for name := range codepages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encode converts text to single-byte codepage data. A rune missing from the
// codepage is replaced by its base letter without diacritics, or by '?'.
func (c Codepage) Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, c.encodeRune(r))
	}
	return out
}

func (c Codepage) encodeRune(r rune) byte {
	if r < 0x80 {
		return byte(r)
	}
	if b, ok := c.Charmap.EncodeRune(r); ok {
		return b
	}
	for _, base := range norm.NFD.String(string(r)) {
		if unicode.Is(unicode.Mn, base) {
			continue
		}
		if base < 0x80 {
			return byte(base)
		}
		if b, ok := c.Charmap.EncodeRune(base); ok {
			return b
		}
	}
	return '?'
}
