package xpath

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/pkg/errors"

	"github.com/echoface/facetnav/index"
)

// likeQuery jcr:like over raw property terms, % matches any run, _ one character
type likeQuery struct {
	field   string
	pattern string
	prefix  string
	re      *regexp.Regexp
}

func newLikeQuery(field, pattern string) *likeQuery {
	sb := &strings.Builder{}
	sb.WriteString("(?s)^")
	prefix, literal := &strings.Builder{}, true
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
			literal = false
		case '_':
			sb.WriteString(".")
			literal = false
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
			if literal {
				prefix.WriteRune(r)
			}
		}
	}
	sb.WriteString("$")
	return &likeQuery{
		field:   field,
		pattern: pattern,
		prefix:  prefix.String(),
		re:      regexp.MustCompile(sb.String()),
	}
}

func (q *likeQuery) String() string {
	return q.field + ":like(" + strconv.Quote(q.pattern) + ")"
}

func (q *likeQuery) Eval(r index.Reader) (*roaring.Bitmap, error) {
	te, err := r.Terms(q.field)
	if err != nil {
		return nil, errors.Wrapf(err, "terms field:%s", q.field)
	}
	result := roaring.New()
	for ok := te.SeekCeil(q.prefix); ok && strings.HasPrefix(te.Term(), q.prefix); ok = te.Next() {
		if !q.re.MatchString(te.Term()) {
			continue
		}
		pl, err := te.Postings()
		if err != nil {
			return nil, errors.Wrapf(err, "postings field:%s term:%s", q.field, te.Term())
		}
		result.Or(pl)
	}
	return result, nil
}
