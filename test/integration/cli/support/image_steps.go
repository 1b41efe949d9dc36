package support

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/MeKo-Tech/docrect/internal/testutil"
	"github.com/cucumber/godog"
)

func encodeFor(name string, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	} else {
		err = png.Encode(&buf, img)
	}
	return buf.Bytes(), err
}

func (testCtx *TestContext) writeImage(name string, img image.Image) error {
	data, err := encodeFor(name, img)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return testCtx.WriteFile(name, data)
}

func (testCtx *TestContext) aReferenceCardImage(name string) error {
	return testCtx.writeImage(name, testutil.CardImage())
}

func (testCtx *TestContext) aFlatGrayImage(name string, w, h int) error {
	return testCtx.writeImage(name, testutil.FlatImage(w, h, color.Gray{Y: 128}))
}

func (testCtx *TestContext) aCorruptImageFile(name string) error {
	return testCtx.WriteFile(name, []byte("definitely not an image"))
}

func decodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("not a decodable image: %w", err)
	}
	return img, format, nil
}

func (testCtx *TestContext) theImageShouldBe(name string, w, h int) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	img, _, err := decodeImage(data)
	if err != nil {
		return err
	}
	if got := img.Bounds(); got.Dx() != w || got.Dy() != h {
		return fmt.Errorf("expected %s to be %dx%d, got %dx%d", name, w, h, got.Dx(), got.Dy())
	}
	return nil
}

func (testCtx *TestContext) theImageShouldBeA(name, kind string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	_, format, err := decodeImage(data)
	if err != nil {
		return err
	}
	if !strings.EqualFold(format, kind) {
		return fmt.Errorf("expected %s to be %s, got %s", name, kind, format)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldBeUniformlyWhite(name string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	img, _, err := decodeImage(data)
	if err != nil {
		return err
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r>>8 != 255 || g>>8 != 255 || bl>>8 != 255 {
				return fmt.Errorf("pixel (%d,%d) of %s is not white", x, y, name)
			}
		}
	}
	return nil
}

// RegisterImageSteps registers fixture and image assertion steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a reference card image "([^"]*)"$`, testCtx.aReferenceCardImage)
	sc.Step(`^a flat gray image "([^"]*)" of (\d+)x(\d+) pixels$`, testCtx.aFlatGrayImage)
	sc.Step(`^a corrupt image file "([^"]*)"$`, testCtx.aCorruptImageFile)
	sc.Step(`^the image "([^"]*)" should be (\d+)x(\d+) pixels$`, testCtx.theImageShouldBe)
	sc.Step(`^the image "([^"]*)" should be a (png|jpeg)$`, testCtx.theImageShouldBeA)
	sc.Step(`^the image "([^"]*)" should be uniformly white$`, testCtx.theImageShouldBeUniformlyWhite)
}
