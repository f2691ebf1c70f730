package extract

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultFactory creates extractors for supported formats
type DefaultFactory struct {
	extractors map[string]Extractor
}

// NewFactory creates a new extractor factory with the default extractors
func NewFactory(logger *zap.Logger) Factory {
	f := &DefaultFactory{
		extractors: make(map[string]Extractor),
	}

	f.registerExtractor(NewTXTExtractor())
	f.registerExtractor(NewPDFExtractor(logger))

	return f
}

// registerExtractor registers an extractor for its supported formats
func (f *DefaultFactory) registerExtractor(e Extractor) {
	for _, format := range e.SupportedFormats() {
		f.extractors[strings.ToLower(format)] = e
	}
}

// GetExtractor returns an extractor for the given format
func (f *DefaultFactory) GetExtractor(format string) (Extractor, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	e, ok := f.extractors[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return e, nil
}
