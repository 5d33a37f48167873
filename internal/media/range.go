package media

import (
	"strconv"
	"strings"
)

// RangeKind classifies a Range header against a resource size.
type RangeKind int

const (
	// FullContent means no usable range was requested: serve the whole file
	// with a 200.
	FullContent RangeKind = iota
	// PartialContent means a valid byte interval was requested: serve it
	// with a 206.
	PartialContent
	// Unsatisfiable means the requested interval lies outside the resource:
	// respond 416 with the total size hint.
	Unsatisfiable
)

// RangeDecision is the outcome of classifying a Range header. Start and End
// are inclusive byte offsets and are meaningful only when Kind is
// PartialContent.
type RangeDecision struct {
	Kind  RangeKind
	Start int64
	End   int64
}

// ChunkSize reports the number of bytes a PartialContent decision covers.
func (d RangeDecision) ChunkSize() int64 {
	if d.Kind != PartialContent {
		return 0
	}
	return d.End - d.Start + 1
}

// String names the decision for logs and metrics labels.
func (d RangeDecision) String() string {
	switch d.Kind {
	case PartialContent:
		return "partial"
	case Unsatisfiable:
		return "unsatisfiable"
	default:
		return "full"
	}
}

// ParseRange classifies an HTTP Range header against totalSize. It is a pure
// function of its inputs.
//
// Only single ranges of the form "bytes=<start>-[<end>]" are honoured; the
// start offset is required and the end offset defaults to the last byte of
// the resource. Anything the grammar does not cover (missing prefix, suffix
// ranges, multiple ranges, inverted intervals, garbage) degrades to
// FullContent rather than failing the request. An interval whose start or end
// falls outside the resource is Unsatisfiable.
func ParseRange(header string, totalSize int64) RangeDecision {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return RangeDecision{Kind: FullContent}
	}
	spec, ok := strings.CutPrefix(strings.ToLower(trimmed), "bytes=")
	if !ok {
		return RangeDecision{Kind: FullContent}
	}
	if strings.Contains(spec, ",") {
		return RangeDecision{Kind: FullContent}
	}
	startText, endText, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return RangeDecision{Kind: FullContent}
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startText), 10, 64)
	if err != nil || start < 0 {
		return RangeDecision{Kind: FullContent}
	}

	end := totalSize - 1
	if trimmedEnd := strings.TrimSpace(endText); trimmedEnd != "" {
		end, err = strconv.ParseInt(trimmedEnd, 10, 64)
		if err != nil || end < 0 {
			return RangeDecision{Kind: FullContent}
		}
		if end < start {
			return RangeDecision{Kind: FullContent}
		}
	}

	if start >= totalSize || end >= totalSize {
		return RangeDecision{Kind: Unsatisfiable}
	}
	return RangeDecision{Kind: PartialContent, Start: start, End: end}
}
