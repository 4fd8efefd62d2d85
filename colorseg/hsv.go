package colorseg

import (
	"image"
	"math"
)

// Band is an inclusive HSV range. Values use the 8-bit convention of most
// imaging toolkits: hue in [0,179] (degrees halved), saturation and value in
// [0,255].
type Band struct {
	HueMin uint8 `toml:"hue_min" validate:"lte=179"`
	HueMax uint8 `toml:"hue_max" validate:"lte=179,gtefield=HueMin"`
	SatMin uint8 `toml:"sat_min"`
	SatMax uint8 `toml:"sat_max" validate:"gtefield=SatMin"`
	ValMin uint8 `toml:"val_min"`
	ValMax uint8 `toml:"val_max" validate:"gtefield=ValMin"`
}

// YellowHighlighter approximates the common yellow highlighter pen.
var YellowHighlighter = Band{
	HueMin: 15, HueMax: 45,
	SatMin: 50, SatMax: 255,
	ValMin: 150, ValMax: 255,
}

// Contains reports whether the HSV triple lies inside the band.
func (b Band) Contains(h, s, v uint8) bool {
	return h >= b.HueMin && h <= b.HueMax &&
		s >= b.SatMin && s <= b.SatMax &&
		v >= b.ValMin && v <= b.ValMax
}

// HSV converts an 8-bit RGB colour to 8-bit HSV.
func HSV(r, g, b uint8) (h, s, v uint8) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxc := math.Max(rf, math.Max(gf, bf))
	minc := math.Min(rf, math.Min(gf, bf))
	diff := maxc - minc

	v = uint8(maxc)
	if maxc == 0 {
		return 0, 0, v
	}
	s = uint8(math.Round(diff / maxc * 255))
	if diff == 0 {
		return 0, s, v
	}

	var deg float64
	switch maxc {
	case rf:
		deg = 60 * (gf - bf) / diff
	case gf:
		deg = 120 + 60*(bf-rf)/diff
	default:
		deg = 240 + 60*(rf-gf)/diff
	}
	if deg < 0 {
		deg += 360
	}
	hue := math.Round(deg / 2)
	if hue >= 180 {
		hue -= 180
	}
	return uint8(hue), s, v
}

// Mask marks every pixel of img whose colour falls inside band.
func Mask(img image.Image, band Band) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			h, s, v := HSV(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			if band.Contains(h, s, v) {
				mask.Pix[(y-bounds.Min.Y)*mask.Stride+(x-bounds.Min.X)] = 0xff
			}
		}
	}
	return mask
}
