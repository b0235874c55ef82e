package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Format selects how command results are printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// texter renders itself for FormatText.
type texter interface {
	WriteText(w io.Writer) error
}

// Formatter prints command results to a writer.
type Formatter struct {
	format Format
	w      io.Writer
}

// NewFormatter creates a Formatter, rejecting unknown formats.
func NewFormatter(format Format, w io.Writer) (*Formatter, error) {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return &Formatter{format: format, w: w}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// Print writes v in the configured format.
func (f *Formatter) Print(v interface{}) error {
	switch f.format {
	case FormatJSON:
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(f.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return f.printText(v)
}

func (f *Formatter) printText(v interface{}) error {
	switch v := v.(type) {
	case texter:
		return v.WriteText(f.w)
	case []string:
		for _, s := range v {
			if _, err := fmt.Fprintln(f.w, s); err != nil {
				return err
			}
		}
		return nil
	case map[string][]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(f.w, "%s: %v\n", k, v[k]); err != nil {
				return err
			}
		}
		return nil
	case map[string]bool:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(f.w, "%s\t%v\n", k, v[k]); err != nil {
				return err
			}
		}
		return nil
	case string, bool, int:
		_, err := fmt.Fprintln(f.w, v)
		return err
	}
	// Structured values read best as YAML
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = f.w.Write(out)
	return err
}
