package gte

import "testing"

func TestDataRegisterRoundTrips(t *testing.T) {
	g := New()
	g.WriteData(RegVXY0, 0x00100020)
	if got := g.ReadData(RegVXY0); got != 0x00100020 {
		t.Fatalf("VXY0 = %#x, want 0x00100020", got)
	}
}

func TestControlRegisterRoundTrips(t *testing.T) {
	g := New()
	g.WriteControl(RegOFX, 1<<16)
	if got := g.ReadControl(RegOFX); got != 1<<16 {
		t.Fatalf("OFX = %#x, want %#x", got, 1<<16)
	}
}

func TestIR1ReadSignExtends(t *testing.T) {
	g := New()
	g.WriteData(RegIR1, -0x8000)
	if got := g.ReadData(RegIR1); got != -32768 {
		t.Fatalf("IR1 = %d, want -32768", got)
	}
}

func TestNCLIPComputesCrossProduct(t *testing.T) {
	g := New()
	g.WriteData(RegSXY0, packXY(0, 0))
	g.WriteData(RegSXY1, packXY(10, 0))
	g.WriteData(RegSXY2, packXY(0, 10))
	g.Execute(cmdNCLIP)
	if g.data[RegMAC0] == 0 {
		t.Fatal("expected nonzero cross product for a non-degenerate triangle")
	}
}

func TestAVSZ3ComputesOrderingZ(t *testing.T) {
	g := New()
	g.data[RegSZ1] = 100
	g.data[RegSZ2] = 200
	g.data[RegSZ3] = 300
	g.control[RegZSF3] = 1 << 12
	g.Execute(cmdAVSZ3)
	if g.data[RegOTZ] != 600 {
		t.Fatalf("OTZ = %d, want 600", g.data[RegOTZ])
	}
}

func TestRTPSProducesScreenCoordinates(t *testing.T) {
	g := New()
	g.data[RegVXY0] = packXY(100, 50)
	g.data[RegVZ0] = 512
	g.control[RegH] = 512
	g.control[RegOFX] = 0
	g.control[RegOFY] = 0
	g.Execute(cmdRTPS)
	if g.data[RegSXY2] == 0 {
		t.Fatal("expected SXY2 to be populated after RTPS")
	}
}

func packXY(x, y int16) int32 {
	return int32(uint16(x)) | int32(uint16(y))<<16
}
