package conversion

import (
	"fmt"
	"image"
	"image/color"
	"runtime"

	"sketch-sprite/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MatFromBytes builds an owned Mat from interleaved pixel data. The data is
// copied, so the caller may reuse the slice afterwards.
func MatFromBytes(rows, cols int, matType gocv.MatType, data []byte, tag string) (*safe.Mat, error) {
	if err := safe.ValidateDimensions(cols, rows, "Mat from bytes"); err != nil {
		return nil, err
	}

	view, err := gocv.NewMatFromBytes(rows, cols, matType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap pixel data: %w", err)
	}
	defer view.Close()

	owned, err := safe.NewMatFromMat(view, tag)
	runtime.KeepAlive(data)
	if err != nil {
		return nil, fmt.Errorf("failed to copy pixel data: %w", err)
	}

	return owned, nil
}

// MatToImage converts GoCV Mat to standard Go image. BGRA Mats become
// *image.NRGBA so the alpha channel survives unpremultiplied.
func MatToImage(src *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	rows := src.Rows()
	cols := src.Cols()
	data := src.Bytes()

	switch src.Type() {
	case gocv.MatTypeCV8UC1:
		img := image.NewGray(image.Rect(0, 0, cols, rows))
		copy(img.Pix, data)
		return img, nil
	case gocv.MatTypeCV8UC3:
		img := image.NewRGBA(image.Rect(0, 0, cols, rows))
		for i, j := 0, 0; i+2 < len(data); i, j = i+3, j+4 {
			img.Pix[j] = data[i+2]
			img.Pix[j+1] = data[i+1]
			img.Pix[j+2] = data[i]
			img.Pix[j+3] = 255
		}
		return img, nil
	case gocv.MatTypeCV8UC4:
		img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
		for i := 0; i+3 < len(data); i += 4 {
			img.Pix[i] = data[i+2]
			img.Pix[i+1] = data[i+1]
			img.Pix[i+2] = data[i]
			img.Pix[i+3] = data[i+3]
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported Mat type for image conversion: %d channels", src.Channels())
	}
}

// ImageToMat converts standard Go image to GoCV Mat. Gray images become
// single channel, images carrying any transparency become BGRA, and
// everything else becomes BGR.
func ImageToMat(img image.Image) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		data := make([]byte, 0, width*height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			off := gray.PixOffset(bounds.Min.X, y)
			data = append(data, gray.Pix[off:off+width]...)
		}
		return MatFromBytes(height, width, gocv.MatTypeCV8UC1, data, "from_gray")
	}

	bgra := make([]byte, width*height*4)
	opaque := true
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			bgra[i] = c.B
			bgra[i+1] = c.G
			bgra[i+2] = c.R
			bgra[i+3] = c.A
			if c.A != 255 {
				opaque = false
			}
			i += 4
		}
	}

	if !opaque {
		return MatFromBytes(height, width, gocv.MatTypeCV8UC4, bgra, "from_image_bgra")
	}

	bgr := make([]byte, 0, width*height*3)
	for p := 0; p < len(bgra); p += 4 {
		bgr = append(bgr, bgra[p], bgra[p+1], bgra[p+2])
	}
	return MatFromBytes(height, width, gocv.MatTypeCV8UC3, bgr, "from_image_bgr")
}
