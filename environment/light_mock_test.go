package environment

import (
	"context"
	"testing"

	"github.com/mklimuk/lightnode"
)

func TestMockLightSensor_StaticValue(t *testing.T) {
	sensor := NewMockLightSensor(func(ctx context.Context) (uint16, error) {
		return 600, nil
	})

	ctx := context.Background()
	raw, err := sensor.Read(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != 600 {
		t.Errorf("expected 600, got %d", raw)
	}
	lux, err := sensor.GetLux(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lux != 500 {
		t.Errorf("expected 500 lux, got %d", lux)
	}
}

func TestMockLightSensor_DynamicBehavior(t *testing.T) {
	callCount := 0

	sensor := NewMockLightSensor(func(ctx context.Context) (uint16, error) {
		callCount++
		return uint16(callCount * 100), nil
	})

	ctx := context.Background()
	for want := uint16(100); want <= 300; want += 100 {
		raw, err := sensor.Read(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if raw != want {
			t.Errorf("expected %d, got %d", want, raw)
		}
	}
}

func TestMockLightSensor_ErrorHandling(t *testing.T) {
	sensor := NewMockLightSensor(func(ctx context.Context) (uint16, error) {
		return 0, lightnode.ErrBusTimeout
	})

	ctx := context.Background()
	if _, err := sensor.Read(ctx); err != lightnode.ErrBusTimeout {
		t.Fatalf("expected bus timeout, got %v", err)
	}
	if _, err := sensor.GetLux(ctx); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestMockLightSensor_ContextUsage(t *testing.T) {
	var receivedCtx context.Context

	sensor := NewMockLightSensor(func(ctx context.Context) (uint16, error) {
		receivedCtx = ctx
		return 1000, nil
	})

	type contextKey string
	key := contextKey("test")
	ctx := context.WithValue(context.Background(), key, "test-value")

	_, err := sensor.Read(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedCtx.Value(key) != "test-value" {
		t.Error("context was not passed through correctly")
	}
}
