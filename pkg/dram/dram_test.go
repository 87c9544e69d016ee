package dram_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32sim/rv32sim/pkg/dram"
)

func TestStoreLoadRoundTrip(t *testing.T) {
	d := dram.New(0x1000, 64)

	for _, size := range []uint32{8, 16, 32} {
		require.NoError(t, d.Store(0x1000, 0xDEADBEEF, size))
		got, err := d.Load(0x1000, size)
		require.NoError(t, err)
		assert.Equal(t, uint32(0xDEADBEEF)&sizeMask(size), got)
	}
}

func sizeMask(size uint32) uint32 {
	switch size {
	case 8:
		return 0xFF
	case 16:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}

func TestStackSizeRoundedUpAndZeroed(t *testing.T) {
	d := dram.New(0x1000, 5)
	assert.Equal(t, 8, d.StackSize())
	v, err := d.Load(0x1004, 32)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestDataSegment(t *testing.T) {
	d := dram.New(0x1000, 16).WithData(0x2000, []byte{0x11, 0x22, 0x33, 0x44})
	v, err := d.Load(0x2000, 32)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x44332211), v)
}

func TestSwitchAddrReadsConstant(t *testing.T) {
	d := dram.New(0x1000, 16)
	for _, size := range []uint32{8, 16, 32} {
		v, err := d.Load(dram.SwitchAddr, size)
		require.NoError(t, err)
		assert.Equal(t, uint32(dram.SwitchValue), v)
	}
}

func TestDigAddrWriteIsSideEffectOnly(t *testing.T) {
	d := dram.New(0x1000, 16)
	require.NoError(t, d.Store(dram.DigAddr, 0x7, 32))
	assert.Equal(t, uint32(0x7), d.LastLED)
	_, err := d.Load(dram.DigAddr, 32)
	assert.ErrorIs(t, err, dram.ErrOutOfRange, "DigAddr is write-only; reading it is not a defined MMIO port")
}

func TestOutOfRangeAccessFails(t *testing.T) {
	d := dram.New(0x1000, 16)
	_, err := d.Load(0x5000, 32)
	assert.ErrorIs(t, err, dram.ErrOutOfRange)
	assert.ErrorIs(t, d.Store(0x5000, 0, 32), dram.ErrOutOfRange)
}

func TestBadSizeFails(t *testing.T) {
	d := dram.New(0x1000, 16)
	_, err := d.Load(0x1000, 24)
	assert.ErrorIs(t, err, dram.ErrBadSize)
	assert.ErrorIs(t, d.Store(0x1000, 0, 24), dram.ErrBadSize)
}

func TestMisalignedAccessWithinSegmentSucceeds(t *testing.T) {
	d := dram.New(0x1000, 16)
	require.NoError(t, d.Store(0x1001, 0xABCD, 16))
	v, err := d.Load(0x1001, 16)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xABCD), v)
}

func TestCrossingSegmentBoundaryFails(t *testing.T) {
	d := dram.New(0x1000, 4) // segment is [0x1000, 0x1004)
	_, err := d.Load(0x1002, 32)
	assert.ErrorIs(t, err, dram.ErrOutOfRange)
}
