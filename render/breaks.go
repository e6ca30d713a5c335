package render

import "github.com/knilesh2212/exam-paper-saas/exam"

// span is a measured block.
type span struct {
	kind   exam.Kind
	hints  exam.Hints
	height float64
}

// chainHeight is the height that must fit on the current page for a
// keep-with-next block at i: the block itself plus every following block up
// to and including the first question.
func chainHeight(spans []span, i int) float64 {
	h := 0.0
	for j := i; j < len(spans); j++ {
		h += spans[j].height
		if j > i && spans[j].kind == exam.KindQuestion {
			break
		}
		if j > i && !spans[j].hints.KeepWithNext && spans[j].kind != exam.KindSectionInstruction {
			break
		}
	}
	return h
}

// breakBefore reports whether block i must start on a new page, given the
// space left on the current page and the height of an empty page body.
//
// Atomic blocks move when they do not fit. Keep-with-next blocks move when
// their chain does not fit. A block already at the top of a page never
// moves, so anything taller than a page starts fresh and then flows.
func breakBefore(spans []span, i int, remaining, body float64) bool {
	if remaining >= body-epsilon {
		return false
	}
	s := spans[i]
	switch {
	case s.hints.KeepWithNext:
		return chainHeight(spans, i) > remaining+epsilon
	case s.hints.Atomic:
		return s.height > remaining+epsilon
	}
	return false
}

const epsilon = 0.01
