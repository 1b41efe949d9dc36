package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/docrect/internal/raster"
	"github.com/MeKo-Tech/docrect/internal/rectify"
	"github.com/MeKo-Tech/docrect/internal/utils"
)

// Process decodes in, rectifies it and encodes the result. Only decode and
// encode failures are returned; detection and geometry problems degrade to
// the basic crop.
func (p *Pipeline) Process(in Input) (*Output, error) {
	return p.ProcessContext(context.Background(), in)
}

// ProcessContext is Process with cancellation checks before decoding, before
// rectification and before encoding. The stages themselves are not
// interruptible.
func (p *Pipeline) ProcessContext(ctx context.Context, in Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, format, err := p.decode(in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := p.rectifier.Rectify(buf)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.finish(in, buf, res, format)
}

// ProcessQuad is Process with caller-supplied corners instead of detection.
func (p *Pipeline) ProcessQuad(in Input, quad utils.Quad) (*Output, error) {
	buf, format, err := p.decode(in)
	if err != nil {
		return nil, err
	}
	return p.finish(in, buf, p.rectifier.RectifyQuad(buf, quad), format)
}

func (p *Pipeline) finish(in Input, src *raster.Buffer, res *rectify.Result, inputFormat string) (*Output, error) {
	if p.cfg.DebugDir != "" {
		dumpDebug(p.cfg.DebugDir, src, res)
	}
	return p.encode(res, inputFormat, in)
}

// Detect decodes in and runs only the detection stages.
func (p *Pipeline) Detect(in Input) (*Detection, error) {
	buf, format, err := p.decode(in)
	if err != nil {
		return nil, err
	}
	det := p.rectifier.Detect(buf)
	return &Detection{
		Width:      buf.Width(),
		Height:     buf.Height(),
		Format:     format,
		Confidence: det.Confidence,
		Quad:       det.Quad,
		Corners:    det.Corners,
		Duration:   det.Duration,
	}, nil
}

func (p *Pipeline) decode(in Input) (*raster.Buffer, string, error) {
	img, format, err := utils.DecodeImage(in.Data, p.cfg.AutoOrient)
	if err != nil {
		return nil, "", &DecodeError{Op: "decode", Err: err}
	}
	if err := checkDeclaredSize(in, img.Bounds()); err != nil {
		return nil, "", err
	}
	buf, err := raster.FromImage(img)
	if err != nil {
		return nil, "", &DecodeError{Op: "convert", Err: err}
	}
	return buf, format, nil
}

func checkDeclaredSize(in Input, b image.Rectangle) error {
	if (in.Width > 0 && in.Width != b.Dx()) || (in.Height > 0 && in.Height != b.Dy()) {
		return &DecodeError{
			Op:  "dimensions",
			Err: fmt.Errorf("declared %dx%d, decoded %dx%d", in.Width, in.Height, b.Dx(), b.Dy()),
		}
	}
	if in.Width < 0 || in.Height < 0 {
		return &DecodeError{Op: "dimensions", Err: fmt.Errorf("negative declared size %dx%d", in.Width, in.Height)}
	}
	return nil
}

func (p *Pipeline) encode(res *rectify.Result, inputFormat string, in Input) (*Output, error) {
	start := time.Now()
	format := utils.OutputFormat(inputFormat)
	switch in.Format {
	case "":
	case utils.FormatJPEG, utils.FormatPNG:
		format = in.Format
	default:
		return nil, &EncodeError{Format: in.Format, Err: errors.New("unsupported output format")}
	}
	var b bytes.Buffer
	if err := utils.EncodeImage(&b, res.Image.Image(), format, p.cfg.JPEGQuality); err != nil {
		return nil, &EncodeError{Format: format, Err: err}
	}

	out := &Output{
		Data:        b.Bytes(),
		Format:      format,
		InputFormat: inputFormat,
		Width:       res.Image.Width(),
		Height:      res.Image.Height(),
		Method:      res.Method,
		Reason:      res.Reason,
		Confidence:  res.Detection.Confidence,
		Quad:        res.Detection.Quad,
		Corners:     res.Detection.Corners,
		Stages:      res.Stages,
		Duration:    res.Duration + time.Since(start),
	}
	slog.Debug("Image processed", "name", in.Name, "method", out.Method,
		"confidence", out.Confidence, "format", format, "bytes", len(out.Data))
	return out, nil
}
