package ambito

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ahmethakanbesel/macro-sync/internal/apperror"
)

// ParseGrid reads a bracketed array literal of quoted string rows such as
//
//	[["Fecha","Compra","Venta"],["01\/01\/2020","70,00","75,00"]]
//
// The literal may itself arrive JSON-quoted. Any structural defect is a
// PARSE error carrying the text around the offending offset.
func ParseGrid(body string) ([][]string, error) {
	src := strings.TrimSpace(body)
	if strings.HasPrefix(src, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(src), &inner); err != nil {
			return nil, apperror.Wrap(apperror.Parse, err, "unquote body").WithSnippet(src)
		}
		src = strings.TrimSpace(inner)
	}

	p := &gridParser{src: src}
	return p.grid()
}

type gridParser struct {
	src string
	pos int
}

func (p *gridParser) grid() ([][]string, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}

	var rows [][]string
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return rows, p.end()
	}
	for {
		row, err := p.row()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return rows, p.end()
		default:
			return nil, p.fail("expected ',' or ']' after row")
		}
	}
}

func (p *gridParser) row() ([]string, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}

	cells := []string{}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return cells, nil
	}
	for {
		p.skipSpace()
		cell, err := p.str()
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return cells, nil
		default:
			return nil, p.fail("expected ',' or ']' after cell")
		}
	}
}

// str reads a double-quoted string, decoding backslash escapes.
func (p *gridParser) str() (string, error) {
	if p.peek() != '"' {
		return "", p.fail("expected quoted cell")
	}
	start := p.pos
	p.pos++

	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return b.String(), nil
		case '\\':
			if p.pos+1 >= len(p.src) {
				p.pos = start
				return "", p.fail("unterminated escape")
			}
			esc := p.src[p.pos+1]
			p.pos += 2
			switch esc {
			case '"', '\\', '/':
				b.WriteByte(esc)
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'u':
				if p.pos+4 > len(p.src) {
					return "", p.fail("short unicode escape")
				}
				n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 16)
				if err != nil {
					return "", p.fail("invalid unicode escape")
				}
				b.WriteRune(rune(n))
				p.pos += 4
			default:
				p.pos -= 2
				return "", p.fail(fmt.Sprintf("invalid escape %q", esc))
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}

	p.pos = start
	return "", p.fail("unterminated string")
}

func (p *gridParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return p.fail(fmt.Sprintf("expected %q", c))
	}
	p.pos++
	return nil
}

func (p *gridParser) end() error {
	p.skipSpace()
	if p.pos != len(p.src) {
		return p.fail("unexpected trailing data")
	}
	return nil
}

func (p *gridParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *gridParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *gridParser) fail(msg string) error {
	from := max(p.pos-20, 0)
	to := min(p.pos+40, len(p.src))
	return apperror.New(apperror.Parse, fmt.Sprintf("%s at offset %d", msg, p.pos)).
		WithSnippet(p.src[from:to])
}
