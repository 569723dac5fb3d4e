// Copyright © 2018 One Concern

/*
Package timestream provides tooling to read, transform and write timestreams.

A timestream is a time-ordered sequence of files, typically images captured by a
camera at regular intervals, each named after its capture instant, e.g.
	cam1_2001_02_01_09_14_15_00.jpg

Timestreams are stored as loose files (flat or nested by year, month, day and hour),
as zip or tar archives, or any mix of those. All of these forms are read the same way,
in chronological order whenever the storage allows it (see pkg/container and pkg/timestream).

Timestreams are written as loose files or bundled in zip archives at some granularity
(see pkg/layout). Writes are atomic and idempotent, and safe from many goroutines and processes.

A pipeline of steps may be run over a timestream by a bounded pool of workers, collecting
per-instant results in a table (see pkg/pipeline and pkg/results).

The tstk command line (cmd/tstk) exposes these as bundle, list, stats and legacy commands.
*/
package timestream
