package hal

// I2C peripheral register file (STM32F4 I2Cx layout, one word per register).
const (
	I2CCR1 Register = iota
	I2CCR2
	I2COAR1
	I2COAR2
	I2CDR
	I2CSR1
	I2CSR2
	I2CCCR
	I2CTRISE

	I2CRegisterCount = int(I2CTRISE) + 1
)

// CR1
var (
	I2CEnable = Bit("PE", I2CCR1, 0)
	I2CStart  = Bit("START", I2CCR1, 8)
	I2CStop   = Bit("STOP", I2CCR1, 9)
	I2CAck    = Bit("ACK", I2CCR1, 10)
	I2CReset  = Bit("SWRST", I2CCR1, 15)
)

// CR2, CCR, TRISE
var (
	I2CFreq       = Field{Name: "FREQ", Reg: I2CCR2, Shift: 0, Width: 6}
	I2CClock      = Field{Name: "CCR", Reg: I2CCCR, Shift: 0, Width: 12}
	I2CFastMode   = Bit("F/S", I2CCCR, 15)
	I2CMaxRise    = Field{Name: "TRISE", Reg: I2CTRISE, Shift: 0, Width: 6}
	I2CData       = Field{Name: "DR", Reg: I2CDR, Shift: 0, Width: 8}
	I2COwnAddress = Field{Name: "ADD", Reg: I2COAR1, Shift: 1, Width: 7}
)

// SR1
var (
	I2CStartSent    = Bit("SB", I2CSR1, 0)
	I2CAddrSent     = Bit("ADDR", I2CSR1, 1)
	I2CByteDone     = Bit("BTF", I2CSR1, 2)
	I2CStopDetected = Bit("STOPF", I2CSR1, 4)
	I2CRxNotEmpty   = Bit("RxNE", I2CSR1, 6)
	I2CTxEmpty      = Bit("TxE", I2CSR1, 7)
	I2CBusError     = Bit("BERR", I2CSR1, 8)
	I2CArbLost      = Bit("ARLO", I2CSR1, 9)
	I2CAckFailure   = Bit("AF", I2CSR1, 10)
	I2COverrun      = Bit("OVR", I2CSR1, 11)
)

// I2CSR1ClearOnWriteZero lists the SR1 flags software clears by writing 0.
const I2CSR1ClearOnWriteZero uint32 = 1<<8 | 1<<9 | 1<<10 | 1<<11

// SR2
var (
	I2CMaster      = Bit("MSL", I2CSR2, 0)
	I2CBusy        = Bit("BUSY", I2CSR2, 1)
	I2CTransmitter = Bit("TRA", I2CSR2, 2)
)
