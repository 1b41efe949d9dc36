package pipeline

import (
	"time"

	"github.com/MeKo-Tech/docrect/internal/detector"
	"github.com/MeKo-Tech/docrect/internal/rectify"
	"github.com/MeKo-Tech/docrect/internal/utils"
)

// Input is an encoded image plus its optional declared pixel size. A zero
// Width or Height skips the corresponding check.
type Input struct {
	Data   []byte
	Width  int
	Height int
	// Name identifies the input in batch results and logs.
	Name string
	// Path is read by the batch worker when Data is empty, so a batch
	// holds at most one encoded input per worker in memory.
	Path string
	// Format forces the output encoding (utils.FormatJPEG or
	// utils.FormatPNG). Empty follows the input's family.
	Format string
}

// Output is the encoded corrected document and how it was produced.
type Output struct {
	Data        []byte                `json:"-"`
	Format      string                `json:"format"`
	InputFormat string                `json:"input_format"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Method      rectify.Method        `json:"method"`
	Reason      string                `json:"reason,omitempty"`
	Confidence  float64               `json:"confidence"`
	Quad        *utils.Quad           `json:"quad,omitempty"`
	Corners     [4]detector.CornerHit `json:"corners"`
	Stages      []rectify.Stage       `json:"stages"`
	Duration    time.Duration         `json:"duration_ns"`
}

// Rectified reports whether a homography was applied.
func (o *Output) Rectified() bool { return o.Method == rectify.MethodRectified }

// Detection is the result of running only the detection stages.
type Detection struct {
	Width      int                   `json:"width"`
	Height     int                   `json:"height"`
	Format     string                `json:"format"`
	Confidence float64               `json:"confidence"`
	Quad       *utils.Quad           `json:"quad,omitempty"`
	Corners    [4]detector.CornerHit `json:"corners"`
	Duration   time.Duration         `json:"duration_ns"`
}
