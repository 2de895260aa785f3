package xpath

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokString
	tokNumber
	tokSlash
	tokDoubleSlash
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokComma
	tokAt
	tokStar
	tokDot
	tokOp
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isNameStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isNameChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' || r == ':'
}

func lex(src string) ([]token, error) {
	var tokens []token
	rs := []rune(src)
	emit := func(kind tokenKind, text string, pos int) {
		tokens = append(tokens, token{kind: kind, text: text, pos: pos})
	}
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '/':
			if i+1 < len(rs) && rs[i+1] == '/' {
				emit(tokDoubleSlash, "//", i)
				i += 2
			} else {
				emit(tokSlash, "/", i)
				i++
			}
		case r == '[':
			emit(tokLBracket, "[", i)
			i++
		case r == ']':
			emit(tokRBracket, "]", i)
			i++
		case r == '(':
			emit(tokLParen, "(", i)
			i++
		case r == ')':
			emit(tokRParen, ")", i)
			i++
		case r == ',':
			emit(tokComma, ",", i)
			i++
		case r == '@':
			emit(tokAt, "@", i)
			i++
		case r == '*':
			emit(tokStar, "*", i)
			i++
		case r == '=':
			emit(tokOp, "=", i)
			i++
		case r == '!' || r == '<' || r == '>':
			if i+1 < len(rs) && rs[i+1] == '=' {
				emit(tokOp, string(rs[i:i+2]), i)
				i += 2
				continue
			}
			if r == '!' {
				return nil, errors.Wrapf(ErrSyntax, "stray '!' at %d", i)
			}
			emit(tokOp, string(r), i)
			i++
		case r == '\'' || r == '"':
			sb := &strings.Builder{}
			j := i + 1
			for ; j < len(rs); j++ {
				if rs[j] != r {
					sb.WriteRune(rs[j])
					continue
				}
				if j+1 < len(rs) && rs[j+1] == r {
					sb.WriteRune(r)
					j++
					continue
				}
				break
			}
			if j >= len(rs) {
				return nil, errors.Wrapf(ErrSyntax, "unterminated string at %d", i)
			}
			emit(tokString, sb.String(), i)
			i = j + 1
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i + 1
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			emit(tokNumber, string(rs[i:j]), i)
			i = j
		case r == '.':
			emit(tokDot, ".", i)
			i++
		case isNameStart(r):
			j := i + 1
			for j < len(rs) && isNameChar(rs[j]) {
				j++
			}
			emit(tokName, string(rs[i:j]), i)
			i = j
		default:
			return nil, errors.Wrapf(ErrSyntax, "unexpected %q at %d", r, i)
		}
	}
	emit(tokEOF, "", len(rs))
	return tokens, nil
}
