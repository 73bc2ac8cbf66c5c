package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/subsetgrep/subsetgrep/telemetry"
)

func TestStartSpan(t *testing.T) {
	ctx := context.Background()
	_, span := telemetry.StartSpan(ctx, "TestSpan")
	span.SetAttributes(attribute.String("test", "value"))
	span.End()
}

func TestDiskIOSpan(t *testing.T) {
	ctx := context.Background()
	_, span := telemetry.StartDiskIOSpan(ctx, "read", map[string]string{
		"path":   "/tmp/test",
		"offset": "0",
		"size":   "1024",
	})
	span.End()
}

func TestMeasureExecutionTime(t *testing.T) {
	ctx := context.Background()
	_, span := telemetry.StartSpan(ctx, "MeasuredOp")
	defer span.End()

	err := telemetry.MeasureExecutionTime(span, "step", func() error {
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestMeasureExecutionTime_RecordsError(t *testing.T) {
	ctx := context.Background()
	_, span := telemetry.StartSpan(ctx, "MeasuredOp")
	defer span.End()

	wantErr := errors.New("boom")
	if err := telemetry.MeasureExecutionTime(span, "step", func() error { return wantErr }); err != wantErr {
		t.Fatalf("expected error to pass through, got: %v", err)
	}
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()
	_, span := telemetry.StartSpan(ctx, "ErrorOp")
	defer span.End()

	telemetry.RecordError(span, errors.New("boom"), "operation failed")
	telemetry.RecordError(span, nil, "should be a no-op")
}
