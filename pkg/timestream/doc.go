// Copyright © 2018 One Concern

// Package timestream reads and writes timestreams: collections of files addressed by
// the instant encoded in their name rather than by their path.
//
// A Reader resolves a root (directory, zip, tar or any nesting thereof) into a lazy,
// restartable sequence of records. A Writer lays records out under an output root,
// either as loose files or bundled into zip archives at a chosen granularity.
package timestream
