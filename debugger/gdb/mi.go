package gdb

import (
	"strconv"
	"strings"

	"github.com/yext/yerrors"
)

// GDB/MI output syntax, as described in the "GDB/MI Output Syntax" section
// of the gdb manual. Tuples decode to map[string]interface{}, lists to
// []interface{} and constants to string. Lists of results drop their keys,
// which in practice are the same for every element (stack=[frame={..},..]).

// Record kinds.
const (
	resultRecord  = '^'
	execRecord    = '*'
	statusRecord  = '+'
	notifyRecord  = '='
	consoleStream = '~'
	targetStream  = '@'
	logStream     = '&'
)

type record struct {
	kind    byte
	class   string
	results map[string]interface{}
	// text is the decoded payload of stream records.
	text string
}

// isPrompt reports whether line is the "(gdb)" prompt terminating a response.
func isPrompt(line string) bool {
	return strings.TrimSpace(line) == "(gdb)"
}

func parseRecord(line string) (*record, error) {
	line = strings.TrimRight(line, "\r\n")
	// Skip an optional numeric token.
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i >= len(line) {
		return nil, yerrors.New("empty MI record: " + strconv.Quote(line))
	}

	p := &parser{s: line, pos: i + 1}
	r := &record{kind: line[i]}
	switch r.kind {
	case consoleStream, targetStream, logStream:
		text, err := p.cstring()
		if err != nil {
			return nil, err
		}
		r.text = text
		return r, nil
	case resultRecord, execRecord, statusRecord, notifyRecord:
		r.class = p.ident()
		r.results = map[string]interface{}{}
		for p.peek() == ',' {
			p.pos++
			k, v, err := p.result()
			if err != nil {
				return nil, err
			}
			r.results[k] = v
		}
		if !p.done() {
			return nil, p.errorf("trailing data")
		}
		return r, nil
	}
	return nil, yerrors.New("unknown MI record: " + strconv.Quote(line))
}

type parser struct {
	s   string
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.s) }

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) errorf(msg string) error {
	return yerrors.New("MI syntax: " + msg + " at " + strconv.Itoa(p.pos) + " in " + strconv.Quote(p.s))
}

func (p *parser) ident() string {
	start := p.pos
	for !p.done() {
		c := p.s[p.pos]
		if c == '=' || c == ',' || c == '{' || c == '}' || c == '[' || c == ']' || c == '"' {
			break
		}
		p.pos++
	}
	return p.s[start:p.pos]
}

func (p *parser) result() (string, interface{}, error) {
	key := p.ident()
	if p.peek() != '=' {
		return "", nil, p.errorf("expected '='")
	}
	p.pos++
	v, err := p.value()
	return key, v, err
}

func (p *parser) value() (interface{}, error) {
	switch p.peek() {
	case '"':
		return p.cstring()
	case '{':
		p.pos++
		tuple := map[string]interface{}{}
		if p.peek() == '}' {
			p.pos++
			return tuple, nil
		}
		for {
			k, v, err := p.result()
			if err != nil {
				return nil, err
			}
			tuple[k] = v
			switch p.peek() {
			case ',':
				p.pos++
			case '}':
				p.pos++
				return tuple, nil
			default:
				return nil, p.errorf("expected ',' or '}'")
			}
		}
	case '[':
		p.pos++
		list := []interface{}{}
		if p.peek() == ']' {
			p.pos++
			return list, nil
		}
		for {
			var (
				v   interface{}
				err error
			)
			if c := p.peek(); c == '"' || c == '{' || c == '[' {
				v, err = p.value()
			} else {
				_, v, err = p.result()
			}
			if err != nil {
				return nil, err
			}
			list = append(list, v)
			switch p.peek() {
			case ',':
				p.pos++
			case ']':
				p.pos++
				return list, nil
			default:
				return nil, p.errorf("expected ',' or ']'")
			}
		}
	}
	return nil, p.errorf("expected value")
}

// cstring decodes a C string constant starting at the opening quote.
func (p *parser) cstring() (string, error) {
	if p.peek() != '"' {
		return "", p.errorf("expected '\"'")
	}
	p.pos++
	var b strings.Builder
	for !p.done() {
		c := p.s[p.pos]
		p.pos++
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if p.done() {
				return "", p.errorf("unterminated escape")
			}
			e := p.s[p.pos]
			p.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0', '1', '2', '3', '4', '5', '6', '7':
				// Octal escape of up to three digits.
				n := int(e - '0')
				for k := 0; k < 2 && !p.done() && p.s[p.pos] >= '0' && p.s[p.pos] <= '7'; k++ {
					n = n*8 + int(p.s[p.pos]-'0')
					p.pos++
				}
				b.WriteByte(byte(n))
			default:
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}

// quote renders arg as a command argument, quoting it when needed.
func quote(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\"\\") {
		return arg
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(arg) + `"`
}

// Accessors for decoded values; missing or mistyped fields read as zero.

func str(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func list(m map[string]interface{}, key string) []interface{} {
	l, _ := m[key].([]interface{})
	return l
}

func tuples(l []interface{}) []map[string]interface{} {
	r := make([]map[string]interface{}, 0, len(l))
	for _, v := range l {
		if t, ok := v.(map[string]interface{}); ok {
			r = append(r, t)
		}
	}
	return r
}
