// Copyright © 2018 One Concern

package pipeline

import (
	"context"

	"github.com/oneconcern/timestream/pkg/timestream"
)

// Step processes one record.
//
// It returns the record to pass on (the input, or a replacement), or nil to drop
// the record: the remaining steps are then skipped for this record.
type Step interface {
	Process(context.Context, *timestream.Record) (*timestream.Record, error)
}

// StepFunc adapts a function to a Step
type StepFunc func(context.Context, *timestream.Record) (*timestream.Record, error)

// Process implements Step
func (f StepFunc) Process(ctx context.Context, rec *timestream.Record) (*timestream.Record, error) {
	return f(ctx, rec)
}

// Pipeline is an ordered list of steps
type Pipeline struct {
	steps []Step
}

// New pipeline
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Add steps at the end of the pipeline
func (p *Pipeline) Add(steps ...Step) *Pipeline {
	p.steps = append(p.steps, steps...)
	return p
}

// Len is the number of steps
func (p *Pipeline) Len() int { return len(p.steps) }

// Process runs the steps in order, and stops at the first failure or drop
func (p *Pipeline) Process(ctx context.Context, rec *timestream.Record) (*timestream.Record, error) {
	var err error
	for _, step := range p.steps {
		rec, err = step.Process(ctx, rec)
		if err != nil || rec == nil {
			return nil, err
		}
	}
	return rec, nil
}
