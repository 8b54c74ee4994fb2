package detector

import "math"

// StructuringElement is a binary kernel with its anchor at (Width/2, Height/2).
type StructuringElement struct {
	Width  int
	Height int
	On     []bool
	// offsets of the set cells relative to the anchor
	dx, dy []int
}

// EllipseElement builds an elliptical structuring element inscribed in a
// w x h box. Row extents are rounded the same way for every size so that
// results do not depend on the caller.
func EllipseElement(w, h int) StructuringElement {
	se := StructuringElement{Width: w, Height: h, On: make([]bool, w*h)}
	r, c := h/2, w/2
	invR2 := 0.0
	if r > 0 {
		invR2 = 1 / float64(r*r)
	}
	for i := range h {
		dy := i - r
		if dy < -r || dy > r {
			continue
		}
		dx := int(math.Round(float64(c) * math.Sqrt(float64(r*r-dy*dy)*invR2)))
		j1 := max(c-dx, 0)
		j2 := min(c+dx+1, w)
		for j := j1; j < j2; j++ {
			se.On[i*w+j] = true
		}
	}
	se.index()
	return se
}

// RectElement builds a full w x h element.
func RectElement(w, h int) StructuringElement {
	se := StructuringElement{Width: w, Height: h, On: make([]bool, w*h)}
	for i := range se.On {
		se.On[i] = true
	}
	se.index()
	return se
}

func (se *StructuringElement) index() {
	ax, ay := se.Width/2, se.Height/2
	se.dx, se.dy = se.dx[:0], se.dy[:0]
	for y := range se.Height {
		for x := range se.Width {
			if se.On[y*se.Width+x] {
				se.dx = append(se.dx, x-ax)
				se.dy = append(se.dy, y-ay)
			}
		}
	}
}

type pixel interface {
	~uint8 | ~float32
}

// dilate takes the maximum over the element. Samples outside the image are ignored.
func dilate[T pixel](src []T, w, h int, se StructuringElement) []T {
	return morph(src, w, h, se, true)
}

// erode takes the minimum over the element.
func erode[T pixel](src []T, w, h int, se StructuringElement) []T {
	return morph(src, w, h, se, false)
}

func morph[T pixel](src []T, w, h int, se StructuringElement, isMax bool) []T {
	out := make([]T, len(src))
	if len(se.dx) == 0 {
		copy(out, src)
		return out
	}
	for y := range h {
		for x := range w {
			var best T
			found := false
			for k := range se.dx {
				nx, ny := x+se.dx[k], y+se.dy[k]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				v := src[ny*w+nx]
				if !found || (isMax && v > best) || (!isMax && v < best) {
					best = v
					found = true
				}
			}
			if !found {
				best = src[y*w+x]
			}
			out[y*w+x] = best
		}
	}
	return out
}

// closing is dilate followed by erode.
func closing[T pixel](src []T, w, h int, se StructuringElement) []T {
	return erode(dilate(src, w, h, se), w, h, se)
}

// opening is erode followed by dilate.
func opening[T pixel](src []T, w, h int, se StructuringElement) []T {
	return dilate(erode(src, w, h, se), w, h, se)
}

// BlackHat returns closing(p) - p, which lifts small dark structures.
func BlackHat(p Plane, se StructuringElement) Plane {
	closed := closing(p.Pix, p.Width, p.Height, se)
	out := NewPlane(p.Width, p.Height)
	for i, v := range closed {
		out.Pix[i] = v - p.Pix[i]
	}
	return out
}

// CloseMask applies a morphological closing to a binary mask.
func CloseMask(m Mask, se StructuringElement) Mask {
	return Mask{Width: m.Width, Height: m.Height, Pix: closing(m.Pix, m.Width, m.Height, se)}
}

// OpenMask applies a morphological opening to a binary mask.
func OpenMask(m Mask, se StructuringElement) Mask {
	return Mask{Width: m.Width, Height: m.Height, Pix: opening(m.Pix, m.Width, m.Height, se)}
}
