package scan

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config tunes the capture cycle. It may be replaced at any time while the
// loop runs; an interval change takes effect on the next scheduled capture
// without restarting the camera stream.
type Config struct {
	Threshold    float64       `validate:"gte=0,lte=1"`
	ScanInterval time.Duration `validate:"gt=0"`
	BeepEnabled  bool
	DebugEnabled bool
	HistoryLimit int `validate:"gte=0"`
}

func (c Config) Validate() error {
	return validate.Struct(c)
}
