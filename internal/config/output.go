package config

import (
	"fmt"
	"strings"
)

// FileOutput is an output written to a file in addition to stdout.
type FileOutput struct {
	// Format is the result logger name.
	Format string

	// Path is the file to write.
	Path string
}

// defaultFileNames maps formats to the file written when no path is given.
var defaultFileNames = map[string]string{
	"text":     "linkcheck-out.txt",
	"json":     "linkcheck-out.json",
	"markdown": "linkcheck-out.md",
	"csv":      "linkcheck-out.csv",
	"xlsx":     "linkcheck-out.xlsx",
}

// ParseFileOutput parses a "FORMAT[/PATH]" argument. Without a path the
// file is named linkcheck-out with an extension matching the format.
func ParseFileOutput(arg string) (FileOutput, error) {
	format, path, _ := strings.Cut(arg, "/")
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return FileOutput{}, fmt.Errorf("%w: %q", ErrInvalidFileOutput, arg)
	}
	if path == "" {
		name, ok := defaultFileNames[format]
		if !ok {
			return FileOutput{}, fmt.Errorf("%w: format %q needs a path", ErrInvalidFileOutput, format)
		}
		path = name
	}
	return FileOutput{Format: format, Path: path}, nil
}

// ParseFileOutputs parses each argument with ParseFileOutput.
func ParseFileOutputs(args []string) ([]FileOutput, error) {
	outputs := make([]FileOutput, 0, len(args))
	for _, arg := range args {
		o, err := ParseFileOutput(arg)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, o)
	}
	return outputs, nil
}
