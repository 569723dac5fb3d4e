// Copyright © 2018 One Concern

// Package container resolves a root location into a lazy sequence of timestream entries.
//
// A root may be a directory tree, a zip archive, a tar archive or a single loose file.
// Archives found while walking a directory, or inside another archive, are expanded in place.
//
// Directories and zip archives are listed in chronological order: names are sorted by their
// date-time token, so that a camera prefix does not perturb the order. Tar archives can only
// be streamed: their entries come in on-disk order, and the listing is then flagged as unsorted.
package container
