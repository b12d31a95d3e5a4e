package codec

import (
	"encoding/binary"
	"image"
	"math/bits"

	"github.com/woozymasta/teximport/pixel"
)

// PVRTC encodes PVRTC1 at 4bpp, or 2bpp when PreferSmaller is set.
// Both platform modes require square power-of-two input.
//
// Endpoints are the per-block channel extremes. Modulation is chosen against
// the bilinearly interpolated endpoints the decoder will reconstruct.
type PVRTC struct{}

// Name implements Codec.
func (PVRTC) Name() string { return "pvrtc" }

// Requirements implements Codec.
func (PVRTC) Requirements() Requirements {
	return Requirements{PowerOfTwo: true, Square: true, Mipmaps: true}
}

// Encode implements Codec.
func (c PVRTC) Encode(buf *pixel.Buffer, hints Hints) (*pixel.Buffer, error) {
	if err := c.Requirements().Check(buf); err != nil {
		return nil, err
	}

	target := pixel.FormatPVRTC4
	if hints.PreferSmaller {
		target = pixel.FormatPVRTC2
	}

	data := make([][]byte, len(buf.Levels))
	for i, level := range buf.Levels {
		data[i] = encodePVRTCLevel(level, target == pixel.FormatPVRTC2)
	}

	return pixel.NewCompressed(target, buf.Width, buf.Height, data)
}

type rgba struct{ r, g, b, a int }

type pvrtcLevel struct {
	src            *image.NRGBA
	blockW, blockH int
	blocksX        int
	blocksY        int
	lo, hi         []rgba
}

func encodePVRTCLevel(img *image.NRGBA, twoBit bool) []byte {
	l := &pvrtcLevel{src: img, blockW: 4, blockH: 4}
	if twoBit {
		l.blockW = 8
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	l.blocksX = max(w/l.blockW, 2)
	l.blocksY = max(h/l.blockH, 2)

	n := l.blocksX * l.blocksY
	colorWords := make([]uint32, n)
	l.lo = make([]rgba, n)
	l.hi = make([]rgba, n)
	for by := 0; by < l.blocksY; by++ {
		for bx := 0; bx < l.blocksX; bx++ {
			i := by*l.blocksX + bx
			lo, hi := l.extremes(bx, by)
			wordA, decA := packColorA(lo)
			wordB, decB := packColorB(hi)
			colorWords[i] = wordA | wordB
			l.lo[i], l.hi[i] = decA, decB
		}
	}

	out := make([]byte, n*8)
	for by := 0; by < l.blocksY; by++ {
		for bx := 0; bx < l.blocksX; bx++ {
			i := by*l.blocksX + bx
			off := twiddle(bx, by, l.blocksX, l.blocksY) * 8
			binary.LittleEndian.PutUint32(out[off:], l.modulation(bx, by, twoBit))
			binary.LittleEndian.PutUint32(out[off+4:], colorWords[i])
		}
	}

	return out
}

// at samples the source with edge clamping; levels smaller than the
// minimum block grid are padded this way.
func (l *pvrtcLevel) at(x, y int) rgba {
	x = min(max(x, 0), l.src.Rect.Dx()-1)
	y = min(max(y, 0), l.src.Rect.Dy()-1)
	o := y*l.src.Stride + x*4
	p := l.src.Pix[o : o+4 : o+4]

	return rgba{int(p[0]), int(p[1]), int(p[2]), int(p[3])}
}

func (l *pvrtcLevel) extremes(bx, by int) (rgba, rgba) {
	lo := rgba{255, 255, 255, 255}
	hi := rgba{}
	for y := by * l.blockH; y < (by+1)*l.blockH; y++ {
		for x := bx * l.blockW; x < (bx+1)*l.blockW; x++ {
			c := l.at(x, y)
			lo = rgba{min(lo.r, c.r), min(lo.g, c.g), min(lo.b, c.b), min(lo.a, c.a)}
			hi = rgba{max(hi.r, c.r), max(hi.g, c.g), max(hi.b, c.b), max(hi.a, c.a)}
		}
	}

	return lo, hi
}

// interpolated returns both endpoint colours at pixel (x, y) the way the
// decoder blends the four surrounding blocks, with wraparound.
func (l *pvrtcLevel) interpolated(x, y int) ([4]float64, [4]float64) {
	px, py := x-l.blockW/2, y-l.blockH/2
	bx0, by0 := floorDiv(px, l.blockW), floorDiv(py, l.blockH)
	fx := float64(px-bx0*l.blockW) / float64(l.blockW)
	fy := float64(py-by0*l.blockH) / float64(l.blockH)

	idx := func(bx, by int) int {
		bx = ((bx % l.blocksX) + l.blocksX) % l.blocksX
		by = ((by % l.blocksY) + l.blocksY) % l.blocksY
		return by*l.blocksX + bx
	}
	corners := [4]int{idx(bx0, by0), idx(bx0+1, by0), idx(bx0, by0+1), idx(bx0+1, by0+1)}
	weights := [4]float64{(1 - fx) * (1 - fy), fx * (1 - fy), (1 - fx) * fy, fx * fy}

	var a, b [4]float64
	for k, ci := range corners {
		wk := weights[k]
		lo, hi := l.lo[ci], l.hi[ci]
		a[0] += wk * float64(lo.r)
		a[1] += wk * float64(lo.g)
		a[2] += wk * float64(lo.b)
		a[3] += wk * float64(lo.a)
		b[0] += wk * float64(hi.r)
		b[1] += wk * float64(hi.g)
		b[2] += wk * float64(hi.b)
		b[3] += wk * float64(hi.a)
	}

	return a, b
}

var (
	weights4bpp = [...]float64{0, 3.0 / 8, 5.0 / 8, 1}
	weights2bpp = [...]float64{0, 1}
)

func (l *pvrtcLevel) modulation(bx, by int, twoBit bool) uint32 {
	weights := weights4bpp[:]
	bitsPer := 2
	if twoBit {
		weights = weights2bpp[:]
		bitsPer = 1
	}

	var word uint32
	for y := 0; y < l.blockH; y++ {
		for x := 0; x < l.blockW; x++ {
			gx, gy := bx*l.blockW+x, by*l.blockH+y
			a, b := l.interpolated(gx, gy)
			c := l.at(gx, gy)
			want := [4]float64{float64(c.r), float64(c.g), float64(c.b), float64(c.a)}

			best, bestErr := 0, -1.0
			for m, wm := range weights {
				e := 0.0
				for ch := 0; ch < 4; ch++ {
					d := a[ch] + (b[ch]-a[ch])*wm - want[ch]
					e += d * d
				}
				if bestErr < 0 || e < bestErr {
					best, bestErr = m, e
				}
			}
			word |= uint32(best) << uint((y*l.blockW+x)*bitsPer)
		}
	}

	return word
}

// packColorA packs the low endpoint into bits 1..15 of the colour word.
// Bit 0 (modulation mode) stays clear.
func packColorA(c rgba) (uint32, rgba) {
	if c.a == 255 {
		r, g, b := quant(c.r, 5), quant(c.g, 5), quant(c.b, 4)
		return 1<<15 | r<<10 | g<<5 | b<<1, rgba{expand(r, 5), expand(g, 5), expand(b, 4), 255}
	}

	a, r, g, b := quant(c.a, 3), quant(c.r, 4), quant(c.g, 4), quant(c.b, 3)
	return a<<12 | r<<8 | g<<4 | b<<1, rgba{expand(r, 4), expand(g, 4), expand(b, 3), expand(a, 3)}
}

// packColorB packs the high endpoint into bits 16..31 of the colour word.
func packColorB(c rgba) (uint32, rgba) {
	if c.a == 255 {
		r, g, b := quant(c.r, 5), quant(c.g, 5), quant(c.b, 5)
		return 1<<31 | r<<26 | g<<21 | b<<16, rgba{expand(r, 5), expand(g, 5), expand(b, 5), 255}
	}

	a, r, g, b := quant(c.a, 3), quant(c.r, 4), quant(c.g, 4), quant(c.b, 4)
	return a<<28 | r<<24 | g<<20 | b<<16, rgba{expand(r, 4), expand(g, 4), expand(b, 4), expand(a, 3)}
}

func quant(v, bits int) uint32 {
	maxV := 1<<bits - 1

	return uint32((v*maxV + 127) / 255)
}

func expand(v uint32, bits int) int {
	maxV := uint32(1)<<bits - 1

	return int((v*255 + maxV/2) / maxV)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}

	return q
}

// twiddle returns the Morton index of block (x, y) in a w x h power-of-two grid.
// y occupies the lower bit of each pair; leftover bits of the longer axis follow.
func twiddle(x, y, w, h int) int {
	minDim := min(w, h)
	shift := bits.TrailingZeros(uint(minDim))

	out := 0
	for i := 0; i < shift; i++ {
		out |= ((y >> i) & 1) << (2 * i)
		out |= ((x >> i) & 1) << (2*i + 1)
	}
	if w > h {
		out |= (x >> shift) << (2 * shift)
	} else {
		out |= (y >> shift) << (2 * shift)
	}

	return out
}
