package colorseg

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// Dilate grows the set pixels of mask by a size×size square kernel.
func Dilate(mask *image.Gray, size int) *image.Gray {
	return binary(effect.Dilate(mask, radius(size)))
}

// Erode shrinks the set pixels of mask by a size×size square kernel. The
// border is extended outwards, so pixels outside the image do not erode it.
func Erode(mask *image.Gray, size int) *image.Gray {
	return binary(effect.Erode(mask, radius(size)))
}

// Close is one dilation followed by one erosion. It merges marks separated
// by less than the kernel and fills pinholes.
func Close(mask *image.Gray, size int) *image.Gray {
	return Erode(Dilate(mask, size), size)
}

func radius(size int) float64 {
	return float64(max(size, 1)-1) / 2
}

// binary folds a filtered image back into a 0/0xff mask.
func binary(img image.Image) *image.Gray {
	return segment.Threshold(img, 0x80)
}

// Regions returns the bounding boxes of the 8-connected groups of set
// pixels in mask, in scan order of their first pixel.
func Regions(mask *image.Gray) []image.Rectangle {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	seen := make([]bool, w*h)
	var regions []image.Rectangle
	var stack []int

	for start := 0; start < w*h; start++ {
		sx, sy := start%w, start/w
		if seen[start] || mask.Pix[sy*mask.Stride+sx] == 0 {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		box := image.Rect(sx, sy, sx+1, sy+1)

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			box = box.Union(image.Rect(x, y, x+1, y+1))

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					j := ny*w + nx
					if seen[j] || mask.Pix[ny*mask.Stride+nx] == 0 {
						continue
					}
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
		regions = append(regions, box.Add(mask.Rect.Min))
	}
	return regions
}
