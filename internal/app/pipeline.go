// Package app wires the input pipeline of taskctl: a task file is parsed,
// validated against the task schema and mapped into a domain.Task, which is
// then assembled into a wire request.
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"taskline/internal/document"
	"taskline/internal/domain"
	"taskline/internal/mapper"
	"taskline/internal/schema"
)

// FileNotFoundError reports a task file that does not exist.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("task file %s not found", e.Path)
}

func (e *FileNotFoundError) Unwrap() error { return e.Err }

// Pipeline turns task documents into tasks. The zero value uses the embedded
// task schema.
type Pipeline struct {
	Schema *schema.Compiled
}

// NewPipeline loads the schema at ref. An empty ref selects the embedded one.
func NewPipeline(ref string) (Pipeline, error) {
	if ref == "" || ref == schema.DefaultRef {
		c, err := schema.Default()
		return Pipeline{Schema: c}, err
	}
	c, err := schema.Load(ref)
	if err != nil {
		return Pipeline{}, err
	}
	return Pipeline{Schema: c}, nil
}

// LoadTask reads the task file at path and decodes it.
func (p Pipeline) LoadTask(path string) (domain.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Task{}, &FileNotFoundError{Path: path, Err: err}
		}
		return domain.Task{}, fmt.Errorf("read task file: %w", err)
	}
	return p.DecodeTask(path, data)
}

// DecodeTask parses data (JSON, or YAML when name ends in .yaml or .yml),
// validates it and maps it. The mapper only sees documents without
// violations; a validation failure is returned as *schema.ValidationFailure.
func (p Pipeline) DecodeTask(name string, data []byte) (domain.Task, error) {
	c, err := p.schema()
	if err != nil {
		return domain.Task{}, err
	}
	doc, err := document.Parse(name, data)
	if err != nil {
		return domain.Task{}, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := c.Validate(doc); err != nil {
		return domain.Task{}, err
	}
	task, err := mapper.MapTask(doc)
	if err != nil {
		return domain.Task{}, fmt.Errorf("map %s: %w", name, err)
	}
	return task, nil
}

func (p Pipeline) schema() (*schema.Compiled, error) {
	if p.Schema != nil {
		return p.Schema, nil
	}
	return schema.Default()
}
