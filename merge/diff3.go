package merge

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// conflictMarkerStart, conflictMarkerBase, conflictMarkerMid, and
// conflictMarkerEnd are the standard git diff3-style conflict markers.
const (
	conflictMarkerStart = "<<<<<<< ours"
	conflictMarkerBase  = "||||||| base"
	conflictMarkerMid   = "======="
	conflictMarkerEnd   = ">>>>>>> theirs"
)

// hunk is one contiguous region of base replaced by a sequence of new
// lines, as produced by diffing base against one side.
type hunk struct {
	baseStart, baseEnd int
	lines              []string
}

// hunksAgainstBase returns the edit hunks needed to turn base's lines into
// other's lines, expressed as base line ranges plus their replacement.
func hunksAgainstBase(base, other string) []hunk {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(base, other)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var hunks []hunk
	baseLine := 0
	var pendingDelete *hunk

	flushPending := func() {
		if pendingDelete != nil {
			hunks = append(hunks, *pendingDelete)
			pendingDelete = nil
		}
	}

	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		var ls []string
		if text != "" {
			ls = strings.Split(text, "\n")
		}

		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flushPending()
			baseLine += len(ls)
		case diffmatchpatch.DiffDelete:
			flushPending()
			pendingDelete = &hunk{baseStart: baseLine, baseEnd: baseLine + len(ls)}
			baseLine += len(ls)
		case diffmatchpatch.DiffInsert:
			if pendingDelete != nil {
				// A delete immediately followed by an insert at the same
				// position is a replace: fold them into one hunk so
				// overlap detection treats it as a single change.
				pendingDelete.lines = ls
				hunks = append(hunks, *pendingDelete)
				pendingDelete = nil
			} else {
				hunks = append(hunks, hunk{baseStart: baseLine, baseEnd: baseLine, lines: ls})
			}
		}
	}
	flushPending()

	return hunks
}

func overlaps(a, b hunk) bool {
	return a.baseStart < b.baseEnd && b.baseStart < a.baseEnd
}

func sameHunk(a, b hunk) bool {
	if a.baseStart != b.baseStart || a.baseEnd != b.baseEnd || len(a.lines) != len(b.lines) {
		return false
	}
	for i := range a.lines {
		if a.lines[i] != b.lines[i] {
			return false
		}
	}
	return true
}

// mergeLines performs a line-level three-way merge of base, ours, and
// theirs, mirroring git's diff3 conflict-marker style. It returns the
// merged text and whether any conflicts remain.
func mergeLines(base, ours, theirs string) (string, bool) {
	baseLines := splitLines(base)
	oursHunks := hunksAgainstBase(base, ours)
	theirsHunks := hunksAgainstBase(base, theirs)

	var out []string
	conflicted := false

	pos := 0
	oi, ti := 0, 0
	for pos <= len(baseLines) {
		var oh, th *hunk
		if oi < len(oursHunks) && oursHunks[oi].baseStart == pos {
			oh = &oursHunks[oi]
		}
		if ti < len(theirsHunks) && theirsHunks[ti].baseStart == pos {
			th = &theirsHunks[ti]
		}

		switch {
		case oh == nil && th == nil:
			if pos < len(baseLines) {
				out = append(out, baseLines[pos])
			}
			pos++
		case oh != nil && th == nil:
			out = append(out, oh.lines...)
			pos = oh.baseEnd
			if oh.baseEnd == oh.baseStart {
				pos++
				if pos-1 < len(baseLines) {
					out = append(out, baseLines[pos-1])
				}
			}
			oi++
		case oh == nil && th != nil:
			out = append(out, th.lines...)
			pos = th.baseEnd
			if th.baseEnd == th.baseStart {
				pos++
				if pos-1 < len(baseLines) {
					out = append(out, baseLines[pos-1])
				}
			}
			ti++
		default:
			if sameHunk(*oh, *th) {
				out = append(out, oh.lines...)
				pos = advancePastEmptyHunk(oh, pos)
				oi++
				ti++
				continue
			}

			if !overlaps(*oh, *th) && oh.baseEnd != oh.baseStart && th.baseEnd != th.baseStart {
				// Edits whose base ranges do not overlap: apply both.
				// Two insertions at the same base position are not
				// handled here; they fall through to a conflict.
				out = append(out, oh.lines...)
				out = append(out, th.lines...)
				pos = max(oh.baseEnd, th.baseEnd)
				oi++
				ti++
				continue
			}

			conflicted = true
			end := max(oh.baseEnd, th.baseEnd)
			out = append(out, conflictMarkerStart)
			out = append(out, oh.lines...)
			out = append(out, conflictMarkerBase)
			out = append(out, baseLines[oh.baseStart:minInt(oh.baseEnd, len(baseLines))]...)
			out = append(out, conflictMarkerMid)
			out = append(out, th.lines...)
			out = append(out, conflictMarkerEnd)
			pos = end
			oi++
			ti++
		}
	}

	return strings.Join(out, "\n"), conflicted
}

func advancePastEmptyHunk(h *hunk, pos int) int {
	if h.baseEnd != h.baseStart {
		return h.baseEnd
	}
	return pos + 1
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
