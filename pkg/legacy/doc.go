// Copyright © 2018 One Concern

// Package legacy reads and writes timestreams as a stream of msgpack maps.
//
// Each message is a map with the following keys:
//
//	datetime  the time of the record, as YYYY-MM-DDTHH:MM:SS
//	image     the raw content bytes
//	filename  the name of the record (optional, absent from older streams)
//
// Keys and text values are written as msgpack bin, and accepted as either bin or str.
package legacy
