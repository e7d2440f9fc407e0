package system

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-dev/go-psrx/psrx/bus"
)

func writeTestBIOS(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "bios-*.bin")
	require.NoError(t, err)
	defer f.Close()

	image := make([]byte, bus.BIOSSize)
	// A single NOP-equivalent (SLL r0,r0,0, encoded as all-zero words) at
	// the reset vector keeps the first Step from touching undefined RAM.
	_, err = f.Write(image)
	require.NoError(t, err)
	return f.Name()
}

func TestNewWiresEveryPeripheralOntoTheBus(t *testing.T) {
	sys := New()
	require.NotNil(t, sys.bus)
	require.NotNil(t, sys.cpu)
	require.NotNil(t, sys.gpu)
	require.NotNil(t, sys.spu)
	require.NotNil(t, sys.cdrom)
	require.NotNil(t, sys.dma)
	require.NotNil(t, sys.timer)
	require.NotNil(t, sys.pad)
}

func TestLoadBIOSRejectsWrongSize(t *testing.T) {
	sys := New()
	f, err := os.CreateTemp(t.TempDir(), "bad-bios-*.bin")
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	f.Close()

	err = sys.LoadBIOS(f.Name())
	require.Error(t, err)
}

func TestLoadBIOSAcceptsExactSize(t *testing.T) {
	sys := New()
	path := writeTestBIOS(t)
	require.NoError(t, sys.LoadBIOS(path))
}

func TestStepAdvancesPCFromResetVector(t *testing.T) {
	sys := New()
	path := writeTestBIOS(t)
	require.NoError(t, sys.LoadBIOS(path))
	sys.Reset()

	startPC := sys.CPU().PC()
	sys.Step()
	require.Equal(t, startPC+4, sys.CPU().PC())
}

func TestStepNRunsExactlyNInstructions(t *testing.T) {
	sys := New()
	path := writeTestBIOS(t)
	require.NoError(t, sys.LoadBIOS(path))
	sys.Reset()

	startPC := sys.CPU().PC()
	sys.StepN(10)
	require.Equal(t, startPC+4*10, sys.CPU().PC())
}

func TestLoadGameRejectsMissingCue(t *testing.T) {
	sys := New()
	err := sys.LoadGame("/nonexistent/path/to/game.cue")
	require.Error(t, err)
}

func TestPadReturnsTheSameInstanceForARepeatedPort(t *testing.T) {
	sys := New()
	require.Same(t, sys.Pad(0), sys.Pad(0))
	require.NotSame(t, sys.Pad(0), sys.Pad(1))
}
