package environment

import (
	"context"

	"github.com/mklimuk/lightnode"
)

// LightBehaviorFunc defines the function signature for light sensor behavior.
// It returns the raw 16-bit measurement or an error.
type LightBehaviorFunc func(ctx context.Context) (uint16, error)

var _ lightnode.LightSensor = &MockLightSensor{}

// MockLightSensor is a light sensor that produces results from a behavior
// function instead of hardware. It stands in for a BH1750 in command tests.
//
// Example usage:
//
//	// Static value
//	sensor := NewMockLightSensor(func(ctx context.Context) (uint16, error) {
//		return 300, nil
//	})
//
//	// Error simulation
//	sensor := NewMockLightSensor(func(ctx context.Context) (uint16, error) {
//		return 0, lightnode.ErrBusTimeout
//	})
type MockLightSensor struct {
	behavior LightBehaviorFunc
}

func NewMockLightSensor(behavior LightBehaviorFunc) *MockLightSensor {
	return &MockLightSensor{
		behavior: behavior,
	}
}

func (m *MockLightSensor) Read(ctx context.Context) (uint16, error) {
	return m.behavior(ctx)
}

// GetLux applies the same conversion as BH1750.GetLux.
func (m *MockLightSensor) GetLux(ctx context.Context) (int, error) {
	raw, err := m.behavior(ctx)
	if err != nil {
		return 0, err
	}
	return rawToLux(raw), nil
}
