// Copyright © 2018 One Concern

/*
Package instant provides the temporal key of a timestream.

An Instant is a civil date-time with second resolution (no time zone: every
instant is assumed local time), a two-digit sub-second slot and an optional
free-text index.

Names follow the grammar:

	[{name}_]YYYY_MM_DD_HH_MM_SS[_SS][_INDEX].{ext}

A two-digit numeric suffix following the date-time token is the sub-second
slot, anything after that is the index. Instants order by (time, subsecond),
and by index only when both sides carry one.

Time zones are dropped when parsing ISO-8601 strings: all instants are naive.
This is a known limitation kept for compatibility with existing timestreams.
*/
package instant
