package conversion

import (
	"fmt"

	"sketch-sprite/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ToBGR returns a three channel copy of src. Gray input is expanded and BGRA
// input loses its alpha channel; callers that care about transparency should
// flatten first.
func ToBGR(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "BGR conversion"); err != nil {
		return nil, err
	}

	switch src.Channels() {
	case 3:
		return src.Clone()
	case 1:
		return convert(src, gocv.ColorGrayToBGR, gocv.MatTypeCV8UC3, "bgr")
	case 4:
		return convert(src, gocv.ColorBGRAToBGR, gocv.MatTypeCV8UC3, "bgr")
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}
}

// ConvertToGrayscale converts multi-channel images to single-channel grayscale
func ConvertToGrayscale(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "grayscale conversion"); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	switch src.Channels() {
	case 1:
		return src.Clone()
	case 3:
		return convert(src, gocv.ColorBGRToGray, gocv.MatTypeCV8UC1, "gray")
	case 4:
		return convert(src, gocv.ColorBGRAToGray, gocv.MatTypeCV8UC1, "gray")
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}
}

// ConvertBGRToHSV converts BGR image to HSV color space
func ConvertBGRToHSV(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateBGR(src, "HSV conversion"); err != nil {
		return nil, err
	}
	return convert(src, gocv.ColorBGRToHSV, gocv.MatTypeCV8UC3, "hsv")
}

// ConvertBGRToLab converts BGR image to Lab color space
func ConvertBGRToLab(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateBGR(src, "Lab conversion"); err != nil {
		return nil, err
	}
	return convert(src, gocv.ColorBGRToLab, gocv.MatTypeCV8UC3, "lab")
}

// ConvertLabToBGR converts Lab image to BGR color space
func ConvertLabToBGR(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateBGR(src, "Lab to BGR conversion"); err != nil {
		return nil, err
	}
	return convert(src, gocv.ColorLabToBGR, gocv.MatTypeCV8UC3, "bgr")
}

// AttachAlpha merges a BGR image with a single channel mask into a BGRA
// image whose alpha channel is the mask.
func AttachAlpha(bgr, alpha *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateBGR(bgr, "alpha attach"); err != nil {
		return nil, err
	}
	if err := safe.ValidateMask(alpha, "alpha attach"); err != nil {
		return nil, err
	}
	if err := safe.ValidateSameSize(bgr, alpha, "alpha attach"); err != nil {
		return nil, err
	}

	channels := gocv.Split(bgr.GetMat())
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	if len(channels) != 3 {
		return nil, fmt.Errorf("expected 3 channels after split, got %d", len(channels))
	}

	alphaMat := alpha.GetMat()
	merged := gocv.NewMat()
	gocv.Merge([]gocv.Mat{channels[0], channels[1], channels[2], alphaMat}, &merged)

	return safe.Adopt(merged, "bgra")
}

func convert(src *safe.Mat, code gocv.ColorConversionCode, dstType gocv.MatType, tag string) (*safe.Mat, error) {
	dst, err := safe.NewMatWithTag(src.Rows(), src.Cols(), dstType, tag)
	if err != nil {
		return nil, fmt.Errorf("destination Mat creation failed: %w", err)
	}

	gocv.CvtColor(src.GetMat(), dst.Ptr(), code)

	if dst.Empty() || dst.Type() != dstType {
		dst.Close()
		return nil, fmt.Errorf("color conversion %d produced an unexpected result", code)
	}

	return dst, nil
}
