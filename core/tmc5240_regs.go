package core

// TMC5240 register subset used for health polling.
// Based on TMC5240 datasheet Rev. 1.09 / 2021-06-02

// TMC5240 Register Addresses
const (
	TMC5240_GCONF      = 0x00 // Global configuration flags
	TMC5240_GSTAT      = 0x01 // Global status flags
	TMC5240_IOIN       = 0x04 // Input pin state, VERSION in bits 24-31
	TMC5240_DRV_STATUS = 0x6F // Driver status flags and current level read back
)

// TMC5240 GSTAT Register Bit Definitions
const (
	TMC5240_GSTAT_RESET   = 1 << 0 // Chip was reset since last GSTAT read
	TMC5240_GSTAT_DRV_ERR = 1 << 1 // Driver shut down by OT or short
	TMC5240_GSTAT_UV_CP   = 1 << 2 // Charge pump undervoltage
)

// TMC5240 DRV_STATUS Register Bit Definitions
const (
	TMC5240_DRV_STATUS_SG_RESULT  = 0x3FF      // StallGuard result mask (bits 0-9)
	TMC5240_DRV_STATUS_S2VSA      = 1 << 12    // Short to supply indicator phase A
	TMC5240_DRV_STATUS_S2VSB      = 1 << 13    // Short to supply indicator phase B
	TMC5240_DRV_STATUS_STEALTH    = 1 << 14    // StealthChop indicator
	TMC5240_DRV_STATUS_FSACTIVE   = 1 << 15    // Full step active indicator
	TMC5240_DRV_STATUS_CS_ACTUAL  = 0x1F << 16 // Actual current control scaling
	TMC5240_DRV_STATUS_STALLGUARD = 1 << 24    // StallGuard status
	TMC5240_DRV_STATUS_OT         = 1 << 25    // Overtemperature flag
	TMC5240_DRV_STATUS_OTPW       = 1 << 26    // Overtemperature pre-warning
	TMC5240_DRV_STATUS_S2GA       = 1 << 27    // Short to ground indicator phase A
	TMC5240_DRV_STATUS_S2GB       = 1 << 28    // Short to ground indicator phase B
	TMC5240_DRV_STATUS_OLA        = 1 << 29    // Open load indicator phase A
	TMC5240_DRV_STATUS_OLB        = 1 << 30    // Open load indicator phase B
	TMC5240_DRV_STATUS_STST       = 1 << 31    // Standstill indicator
)

// TMC5240 SPI Access
const (
	TMC5240_WRITE_BIT = 0x80 // Write access bit (set bit 7)
	TMC5240_READ_BIT  = 0x00 // Read access (bit 7 = 0)

	// TMC5240_DATAGRAM_LEN is address/status byte plus 32-bit data.
	TMC5240_DATAGRAM_LEN = 5
)
