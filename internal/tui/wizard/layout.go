package wizard

import (
	uv "github.com/charmbracelet/ultraviolet"
)

// Layout breakpoints and dimensions
const (
	// DefaultCompactWidth is the terminal width below which mobile-optimized
	// wizards use the compact layout.
	DefaultCompactWidth = 100
	// StepListWidth is the width of the step list in the full layout
	StepListWidth = 28
	// BottomBarHeight is the height of the compact navigation bar in rows
	BottomBarHeight = 2
	// ButtonRowHeight is the height of the full layout's button row and hints
	ButtonRowHeight = 3
)

// LayoutMode is the presentation variant, chosen once when the model is built.
type LayoutMode int

const (
	// LayoutFull shows the labeled step list beside the step content
	LayoutFull LayoutMode = iota
	// LayoutCompact shows a dot indicator and a fixed bottom navigation bar
	LayoutCompact
)

func (m LayoutMode) String() string {
	if m == LayoutCompact {
		return "compact"
	}
	return "full"
}

// ViewportFunc reports the terminal size. cmd wires it to term.GetSize.
type ViewportFunc func() (width, height int, err error)

// SelectLayout picks the layout for a session. Compact is used only when the
// wizard is mobile-optimized and the viewport is narrower than breakpoint.
// An unavailable viewport selects the full layout.
func SelectLayout(viewport ViewportFunc, mobileOptimized bool, breakpoint int) LayoutMode {
	if !mobileOptimized || viewport == nil {
		return LayoutFull
	}
	if breakpoint <= 0 {
		breakpoint = DefaultCompactWidth
	}
	width, _, err := viewport()
	if err != nil || width <= 0 {
		return LayoutFull
	}
	if width < breakpoint {
		return LayoutCompact
	}
	return LayoutFull
}

// regions are the rectangles one frame is drawn into.
type regions struct {
	Area    uv.Rectangle
	Header  uv.Rectangle
	Steps   uv.Rectangle // empty in compact mode
	Content uv.Rectangle
	Footer  uv.Rectangle
}

// calculateRegions splits the screen for the given mode.
func calculateRegions(mode LayoutMode, width, height int) regions {
	area := uv.Rectangle{Max: uv.Position{X: width, Y: height}}

	footerHeight := ButtonRowHeight
	headerHeight := 3
	if mode == LayoutCompact {
		footerHeight = BottomBarHeight
		headerHeight = 2
	}
	if area.Dy() < headerHeight+footerHeight+1 {
		headerHeight, footerHeight = 1, 1
	}

	header, rest := uv.SplitVertical(area, uv.Fixed(headerHeight))
	body, footer := uv.SplitVertical(rest, uv.Fixed(max(rest.Dy()-footerHeight, 0)))

	var steps, content uv.Rectangle
	if mode == LayoutFull {
		listWidth := StepListWidth
		if body.Dx()/3 < listWidth {
			listWidth = body.Dx() / 3
		}
		steps, content = uv.SplitHorizontal(body, uv.Fixed(listWidth))
		content.Min.X += 1 // gutter between the list and the content
	} else {
		content = body
	}

	return regions{
		Area:    area,
		Header:  header,
		Steps:   steps,
		Content: content,
		Footer:  footer,
	}
}
