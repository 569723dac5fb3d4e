// Copyright © 2018 One Concern

// Package pipeline runs chains of per-record steps over a timestream.
//
// A Step transforms a record, replaces it with another one, drops it (nil record),
// or fails. A Pipeline is an ordered list of steps, and is itself a Step.
//
// An Engine dispatches the records of a source to a step, either sequentially in
// source order (one worker), or to a bounded pool of workers with no ordering
// guarantee. The report of every processed record is merged into a results table
// keyed by instant.
package pipeline
