package bus

// Physical address map. All ranges are physical addresses, i.e. already
// masked through the KUSEG/KSEG0/KSEG1 mirror.
const (
	RAMStart uint32 = 0x0000_0000
	RAMEnd   uint32 = 0x001F_FFFF
	RAMSize         = 2 * 1024 * 1024

	Expansion1Start uint32 = 0x1F00_0000
	Expansion1End   uint32 = 0x1F7F_FFFF
	// RomHeaderEnd bounds the window that reads as zero rather than
	// open-bus 0xFF.
	RomHeaderEnd uint32 = 0x1F00_00FF

	ScratchpadStart uint32 = 0x1F80_0000
	ScratchpadEnd   uint32 = 0x1F80_03FF
	ScratchpadSize         = 1024

	IOPortsStart uint32 = 0x1F80_1000
	IOPortsEnd   uint32 = 0x1F80_2FFF

	Expansion3Start uint32 = 0x1FA0_0000
	Expansion3End   uint32 = 0x1FBF_FFFF

	BIOSStart uint32 = 0x1FC0_0000
	BIOSEnd   uint32 = 0x1FC7_FFFF
	BIOSSize         = 512 * 1024

	CacheControlAddr uint32 = 0x1FFE_0130
)

// I/O register map, used by System to wire peripherals into the bus'
// dispatch table.
const (
	JoyTxRx  uint32 = 0x1F80_1040
	JoyStat  uint32 = 0x1F80_1044
	JoyMode  uint32 = 0x1F80_1048
	JoyCtrl  uint32 = 0x1F80_104A
	JoyBaud  uint32 = 0x1F80_104E

	IStat uint32 = 0x1F80_1070
	IMask uint32 = 0x1F80_1074

	DMABase uint32 = 0x1F80_1080
	DMAEnd  uint32 = 0x1F80_10EF
	DPCR    uint32 = 0x1F80_10F0
	DICR    uint32 = 0x1F80_10F4

	Timer0Counter uint32 = 0x1F80_1100
	Timer0Mode    uint32 = 0x1F80_1104
	Timer0Target  uint32 = 0x1F80_1108
	Timer1Counter uint32 = 0x1F80_1110
	Timer1Mode    uint32 = 0x1F80_1114
	Timer1Target  uint32 = 0x1F80_1118
	Timer2Counter uint32 = 0x1F80_1120
	Timer2Mode    uint32 = 0x1F80_1124
	Timer2Target  uint32 = 0x1F80_1128

	CDRomStart uint32 = 0x1F80_1800
	CDRomEnd   uint32 = 0x1F80_1803

	GP0      uint32 = 0x1F80_1810
	GPUREAD  uint32 = 0x1F80_1810
	GP1      uint32 = 0x1F80_1814
	GPUSTAT  uint32 = 0x1F80_1814

	SPUStart uint32 = 0x1F80_1C00
	SPUEnd   uint32 = 0x1F80_1E80
)
