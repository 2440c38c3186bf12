package hal

// USART register file (STM32F4 USARTx layout).
const (
	USARTSR Register = iota
	USARTDR
	USARTBRR
	USARTCR1
	USARTCR2
	USARTCR3

	USARTRegisterCount = int(USARTCR3) + 1
)

var (
	USARTOverrun    = Bit("ORE", USARTSR, 3)
	USARTRxNotEmpty = Bit("RXNE", USARTSR, 5)
	USARTTxComplete = Bit("TC", USARTSR, 6)
	USARTTxEmpty    = Bit("TXE", USARTSR, 7)

	USARTData = Field{Name: "DR", Reg: USARTDR, Shift: 0, Width: 8}

	USARTBaudFraction = Field{Name: "DIV_Fraction", Reg: USARTBRR, Shift: 0, Width: 4}
	USARTBaudMantissa = Field{Name: "DIV_Mantissa", Reg: USARTBRR, Shift: 4, Width: 12}

	USARTRxEnable    = Bit("RE", USARTCR1, 2)
	USARTTxEnable    = Bit("TE", USARTCR1, 3)
	USARTRxInterrupt = Bit("RXNEIE", USARTCR1, 5)
	USARTEnable      = Bit("UE", USARTCR1, 13)
)

// USARTSRClearOnWriteZero lists the SR flags software may clear by writing 0.
const USARTSRClearOnWriteZero uint32 = 1<<5 | 1<<6
