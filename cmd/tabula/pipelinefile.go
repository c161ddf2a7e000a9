package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/tabula/internal/pipeline"
	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"
)

var errNoSteps = errors.New(`toml pipeline needs a top-level "steps" array`)

// loadPipelineFile reads path and decodes it by extension into the generic
// value pipeline.Parse expects.
func loadPipelineFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodePipeline(data, strings.ToLower(filepath.Ext(path)))
}

// decodePipeline decodes data according to ext. Syntax errors wrap
// pipeline.ErrInvalidPipelineSyntax whatever the format.
func decodePipeline(data []byte, ext string) (any, error) {
	switch ext {
	case ".json":
		return pipeline.Decode(data)
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidPipelineSyntax, err)
		}
		return raw, nil
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidPipelineSyntax, err)
		}
		steps, ok := doc["steps"]
		if !ok {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidPipelineSyntax, errNoSteps)
		}
		return steps, nil
	default:
		return nil, fmt.Errorf("unsupported pipeline file extension %q: want .json, .yaml, .yml or .toml", ext)
	}
}
