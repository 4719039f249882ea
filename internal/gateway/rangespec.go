package gateway

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/kakarotoncloud/Filetolink/internal/domain"
)

// ErrRangeIgnored means the Range header is not a form we honour;
// the whole object is served instead.
var ErrRangeIgnored = errors.New("range header ignored")

var rangeRe = regexp.MustCompile(`^bytes=(\d+)-(\d*)$`)

// Range is an inclusive byte range.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Length() int64 { return r.End - r.Start + 1 }

// ContentRange formats the Content-Range value of a 206 answer.
func (r Range) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// UnsatisfiedRange formats the Content-Range value of a 416 answer.
func UnsatisfiedRange(total int64) string {
	return fmt.Sprintf("bytes */%d", total)
}

// ParseRange parses a single "bytes=start-[end]" range against total.
//
// It returns ErrRangeIgnored for any other form and when total is unknown (0),
// and domain.ErrUnsatisfiable when the range does not fit in total.
func ParseRange(header string, total int64) (Range, error) {
	if total <= 0 {
		return Range{}, ErrRangeIgnored
	}
	m := rangeRe.FindStringSubmatch(header)
	if m == nil {
		return Range{}, ErrRangeIgnored
	}

	// digits only, so a parse error can only be an overflow past any total
	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Range{}, domain.ErrUnsatisfiable
	}
	end := total - 1
	if m[2] != "" {
		if end, err = strconv.ParseInt(m[2], 10, 64); err != nil {
			return Range{}, domain.ErrUnsatisfiable
		}
	}

	if start >= total || end >= total || start > end {
		return Range{}, domain.ErrUnsatisfiable
	}
	return Range{Start: start, End: end}, nil
}
