package pdfscan

import (
	"sort"
	"strings"

	"github.com/formweld/formweld/internal/field"
)

// Label search zones relative to the field rectangle.
const (
	labelAboveXMargin = 10.0  // slack either side of the rect's x-span
	labelAboveYLimit  = 40.0  // how far above the rect's top to look
	labelLeftYBelow   = 5.0   // slack below the rect's bottom edge
	labelLeftYAbove   = 15.0  // slack above the rect's top edge
	labelLeftXWindow  = 250.0 // how far left of the rect to look
)

type labelCandidate struct {
	text string
	pos  float64 // y for "above" candidates, x for "left" ones
}

// FindNearbyLabel scans a page's text runs for the label visually closest
// to a field rectangle. Two pools are considered: runs directly above the
// rectangle and runs to its left. Checkbox-sized fields prefer the
// nearest left label (checkboxes are conventionally labeled inline);
// everything else prefers the nearest label above, falling back to left.
func FindNearbyLabel(rect field.Rect, runs []TextRun) string {
	x1, y1, x2, y2 := rect[0], rect[1], rect[2], rect[3]

	var above, left []labelCandidate
	for _, run := range runs {
		text := strings.TrimSpace(run.Text)
		if len(text) < 2 {
			continue
		}

		// Above: anchored within the rect's x-span, not too far up.
		if run.X > x1-labelAboveXMargin && run.X < x2+labelAboveXMargin {
			if run.Y > y2 && run.Y < y2+labelAboveYLimit {
				above = append(above, labelCandidate{text: text, pos: run.Y})
				continue
			}
		}

		// Left: within the rect's y-span, inside a wide left window.
		if run.Y > y1-labelLeftYBelow && run.Y < y2+labelLeftYAbove {
			if run.X > x1-labelLeftXWindow && run.X < x1 {
				left = append(left, labelCandidate{text: text, pos: run.X})
			}
		}
	}

	if rect.IsCheckboxSized() && len(left) > 0 {
		return nearestLeft(left)
	}
	if len(above) > 0 {
		// Closest above = smallest y.
		sort.SliceStable(above, func(i, j int) bool { return above[i].pos < above[j].pos })
		return above[0].text
	}
	if len(left) > 0 {
		return nearestLeft(left)
	}
	return ""
}

// nearestLeft returns the left candidate closest to the rectangle, i.e.
// the one with the largest x.
func nearestLeft(left []labelCandidate) string {
	sort.SliceStable(left, func(i, j int) bool { return left[i].pos > left[j].pos })
	return left[0].text
}
