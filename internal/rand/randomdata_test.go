// Copyright © 2018 One Concern

package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetterBytes(t *testing.T) {
	name := LetterBytes(20)
	assert.Len(t, name, 20)
	for _, b := range name {
		assert.True(t, (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9'))
	}
}

func TestPayload(t *testing.T) {
	assert.Equal(t, Payload("2001_02_01_09_14_15_00.tif", 64), Payload("2001_02_01_09_14_15_00.tif", 64))
	assert.NotEqual(t, Payload("2001_02_01_09_14_15_00.tif", 64), Payload("2001_02_01_10_14_15_00.tif", 64))
	assert.Len(t, Bytes(10), 10)
}

func benchmarkBytes(b *testing.B, size int) {
	for n := 0; n < b.N; n++ {
		_ = Bytes(size)
	}
}

func BenchmarkBytes100(b *testing.B)     { benchmarkBytes(b, 100) }
func BenchmarkBytes1000000(b *testing.B) { benchmarkBytes(b, 1000000) }
