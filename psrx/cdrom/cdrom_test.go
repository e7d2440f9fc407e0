package cdrom

import (
	"testing"

	"github.com/kestrel-dev/go-psrx/psrx/irq"
	"github.com/kestrel-dev/go-psrx/psrx/scheduler"
)

func newTestController() (*Controller, *scheduler.Scheduler) {
	sched := scheduler.New()
	ic := irq.New()
	ic.WriteRegister(4, 32, 0xFFFF_FFFF)
	c := New(sched, ic)
	return c, sched
}

func runUntil(sched *scheduler.Scheduler, c *Controller, maxTicks int) {
	for i := 0; i < maxTicks; i++ {
		sched.AddPendingTicks(1)
		for _, h := range sched.RunEvents() {
			switch h {
			case c.AckHandle():
				c.OnAckFired()
			case c.DeliverHandle():
				c.OnDeliverFired()
			case c.ReadHandle():
				c.OnReadFired()
			}
		}
	}
}

func TestResetStatusIsEighteen(t *testing.T) {
	c, _ := newTestController()
	if got := c.ReadRegister(0, 8); got != 0x18 {
		t.Fatalf("status after reset = %#X, want 0x18", got)
	}
}

func TestGetStatDeliversINT3WithSingleByteResponse(t *testing.T) {
	c, sched := newTestController()
	c.WriteRegister(1, 8, CmdGetStat)
	runUntil(sched, c, 6000)

	if c.interruptFlag&0x1F != int3Ack {
		t.Fatalf("interruptFlag = %#X, want INT3", c.interruptFlag)
	}
	resp := c.ReadRegister(1, 8)
	_ = resp
	if len(c.responseFIFO) != 0 {
		t.Fatalf("expected response FIFO drained by one read, got %d left", len(c.responseFIFO))
	}
}

func TestSetlocUpdatesPositionBeforeRead(t *testing.T) {
	c, sched := newTestController()
	c.WriteRegister(2, 8, 0x00) // minute
	c.WriteRegister(2, 8, 0x02) // second
	c.WriteRegister(2, 8, 0x00) // frame
	c.WriteRegister(1, 8, CmdSetloc)
	runUntil(sched, c, 6000)

	want := MSF{Minute: 0, Second: 2, Frame: 0}
	if c.position != want {
		t.Fatalf("position = %+v, want %+v", c.position, want)
	}
}

func TestGetIDWithoutDiscReportsErrorOnSecondResponse(t *testing.T) {
	c, sched := newTestController()
	c.WriteRegister(1, 8, CmdGetID)
	runUntil(sched, c, 40000)

	if c.interruptFlag&0x1F != int5Error {
		t.Fatalf("interruptFlag = %#X, want INT5 (no disc)", c.interruptFlag)
	}
}

func TestMinimumInterruptSpacingIsEnforced(t *testing.T) {
	c, sched := newTestController()
	c.lastInterruptTime = 0
	c.deferred = append(c.deferred, pendingResponse{intCode: int2Complete, bytes: []byte{0}})
	c.state = stateSecondPending

	sched.AddPendingTicks(10)
	sched.RunEvents()
	c.OnDeliverFired() // global tick is 10, well under the 1000-cycle floor

	if len(c.deferred) != 1 {
		t.Fatal("expected delivery to defer until the minimum spacing elapses")
	}

	sched.AddPendingTicks(1000)
	sched.RunEvents()
	c.OnDeliverFired()

	if len(c.deferred) != 0 {
		t.Fatal("expected delivery once the minimum spacing has elapsed")
	}
	if sched.GlobalTick() < minInterruptSpacing {
		t.Fatalf("delivered at tick %d, before the %d-cycle floor", sched.GlobalTick(), minInterruptSpacing)
	}
}

func TestIndexSelectsInterruptRegisterPair(t *testing.T) {
	c, _ := newTestController()
	c.WriteRegister(0, 8, 1) // select index 1
	c.WriteRegister(2, 8, 0x1F)
	if got := c.ReadRegister(2, 8); got != 0x1F {
		t.Fatalf("interruptEnable readback = %#X, want 0x1F", got)
	}
}

func TestReadNDeliversDataFIFOAndINT1Repeatedly(t *testing.T) {
	c, sched := newTestController()
	disc := &DiscImage{
		Tracks: []Track{{Number: 1, Type: Mode2_2352, LengthSectors: 4}},
		data:   make([]byte, 4*bytesPerSector),
	}
	c.InsertDisc(disc)

	c.WriteRegister(1, 8, CmdSetmode)
	c.WriteRegister(1, 8, CmdReadN)
	runUntil(sched, c, 10000)

	if len(c.dataFIFO) == 0 {
		t.Fatal("expected data FIFO to have received at least one sector")
	}
	// ACK at 5000, then sector reads at 7000 and 9000.
	if len(c.dataFIFO) < 2*2048 {
		t.Fatalf("expected two sectors in the data FIFO, got %d bytes", len(c.dataFIFO))
	}
	if got := c.interruptFlag & 0x07; got != int1DataReady {
		t.Fatalf("interrupt cause = %d, want INT1", got)
	}
}
