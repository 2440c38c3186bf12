package sim

// Board bundles the peripherals of a simulated sensor node.
type Board struct {
	I2C    *I2C
	USART  *USART
	Sensor *BH1750
}

// NewBoard returns a board with a BH1750 attached at addr reporting raw.
func NewBoard(addr byte, raw uint16) *Board {
	b := &Board{
		I2C:    NewI2C(),
		USART:  NewUSART(),
		Sensor: NewBH1750(addr, raw),
	}
	b.I2C.Attach(b.Sensor)
	return b
}
