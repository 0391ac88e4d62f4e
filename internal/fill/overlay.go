package fill

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/formweld/formweld/internal/field"
)

const (
	overlayMaxFontSize = 12.0
	overlayInsetX      = 2.0

	// Average glyph width as a fraction of font size, used to clip
	// overlay text to its write zone.
	overlayGlyphWidthRatio = 0.5
)

// overlayValue is one value stamped onto the page as free text.
type overlayValue struct {
	page  int
	rect  field.Rect
	value string
}

// stampOverlays writes every overlay value onto the already-filled
// document in place, one positioned text watermark per value, grouped
// per page.
func stampOverlays(path string, overlays []overlayValue) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	byPage := make(map[int][]*model.Watermark)
	for _, ov := range overlays {
		page := ov.page
		if page < 1 {
			page = 1
		}
		wm, err := overlayWatermark(ov)
		if err != nil {
			return err
		}
		byPage[page] = append(byPage[page], wm)
	}

	if err := api.AddWatermarksSliceMapFile(path, "", byPage, conf); err != nil {
		return fmt.Errorf("failed to stamp overlay text: %w", err)
	}
	return nil
}

// overlayWatermark builds one absolutely positioned text stamp for a
// write zone: font scaled to the zone height, vertically centered, with
// a small left inset.
func overlayWatermark(ov overlayValue) (*model.Watermark, error) {
	h := ov.rect.Height()
	size := overlayMaxFontSize
	if scaled := h * 0.8; scaled < size {
		size = scaled
	}
	if size < 1 {
		size = 1
	}

	x := ov.rect[0] + overlayInsetX
	y := ov.rect[1] + h/2 - size/2 + 1

	text := clipToWidth(ov.value, ov.rect.Width()-overlayInsetX, size)

	desc := fmt.Sprintf(
		"font:Helvetica, points:%d, scale:1 abs, pos:bl, off:%.1f %.1f, rot:0, fillc:#000000, op:1",
		int(size), x, y,
	)
	wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to build overlay stamp: %w", err)
	}
	return wm, nil
}

// clipToWidth truncates text that would overrun the write zone, using an
// average glyph width estimate rather than exact metrics.
func clipToWidth(text string, width, fontSize float64) string {
	if width <= 0 {
		return text
	}
	maxChars := int(width / (fontSize * overlayGlyphWidthRatio))
	if maxChars < 1 {
		maxChars = 1
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
