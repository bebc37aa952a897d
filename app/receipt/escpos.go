package receipt

import (
	"bytes"
)

// ESC/POS control bytes
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	NL  byte = 0x0A
)

// Alignment is the horizontal justification selected with ESC a
type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

// Size is the character size selected with ESC !
type Size byte

const (
	SizeNormal       Size = 0x00
	SizeDoubleHeight Size = 0x10
	SizeDoubleWidth  Size = 0x20
	SizeDouble       Size = 0x30
)

// emphasized bit of the ESC ! print mode byte
const modeEmphasized byte = 0x08

// CutMode selects the paper cut performed with GS V
type CutMode byte

const (
	CutFull    CutMode = 0
	CutPartial CutMode = 1
)

// Writer accumulates one self-contained ESC/POS byte stream.
// Text is encoded through the writer's codepage.
type Writer struct {
	buf      bytes.Buffer
	codepage Codepage
	bold     bool
}

// NewWriter creates a writer that encodes text with the given codepage
func NewWriter(cp Codepage) *Writer {
	return &Writer{codepage: cp}
}

// Init resets the printer and selects the codepage, so it must come before any text
func (w *Writer) Init() {
	w.buf.Write([]byte{ESC, '@'})
	w.bold = false
	w.SelectCodepage()
}

// SelectCodepage emits ESC t n for the writer's codepage
func (w *Writer) SelectCodepage() {
	w.buf.Write([]byte{ESC, 't', w.codepage.Table})
}

// Align sets the justification for the following lines
func (w *Writer) Align(a Alignment) {
	w.buf.Write([]byte{ESC, 'a', byte(a)})
}

// Bold toggles emphasized printing
func (w *Writer) Bold(on bool) {
	var e byte
	if on {
		e = 1
	}
	w.bold = on
	w.buf.Write([]byte{ESC, 'E', e})
}

// SetSize selects the character size. ESC ! also carries the emphasis bit, so the
// current bold state is preserved.
func (w *Writer) SetSize(s Size) {
	mode := byte(s)
	if w.bold {
		mode |= modeEmphasized
	}
	w.buf.Write([]byte{ESC, '!', mode})
}

// Feed prints and feeds n lines
func (w *Writer) Feed(n int) {
	if n <= 0 {
		return
	}
	if n > 255 {
		n = 255
	}
	w.buf.Write([]byte{ESC, 'd', byte(n)})
}

// Cut cuts the paper
func (w *Writer) Cut(mode CutMode) {
	w.buf.Write([]byte{GS, 'V', byte(mode)})
}

// Text writes encoded text without a line break
func (w *Writer) Text(s string) {
	w.buf.Write(w.codepage.Encode(s))
}

// Line writes encoded text followed by a line feed
func (w *Writer) Line(s string) {
	w.Text(s)
	w.buf.WriteByte(NL)
}

// NewLine writes an empty line
func (w *Writer) NewLine() {
	w.buf.WriteByte(NL)
}

// Len returns the number of bytes written so far
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns a copy of the stream, safe to hand to another goroutine
func (w *Writer) Bytes() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out
}
