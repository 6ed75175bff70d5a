package tokens

import (
	"math"

	"github.com/pkoukk/tiktoken-go"
)

const charsPerToken = 4

// DefaultEncoding is the BPE encoding used when nothing more specific
// is known about the target model.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// NewCounter returns a tiktoken-backed counter for the given encoding,
// falling back to a character-based estimate when the encoding cannot
// be loaded (for example, no cached BPE data and no network).
func NewCounter(encoding string) Counter {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return &EstimatingCounter{}
	}
	return &tiktokenCounter{enc: enc}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// EstimatingCounter approximates token count as ~4 characters per token.
type EstimatingCounter struct{}

func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{}
}

func (*EstimatingCounter) Count(text string) int {
	return Estimate(text)
}

func Estimate(text string) int {
	return int(math.Ceil(float64(len(text)) / float64(charsPerToken)))
}
