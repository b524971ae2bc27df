package services

import (
	"context"
	"errors"
	"testing"

	"github.com/conceptlens/conceptlens-backend/internal/engine"
)

func TestParametersDefaultWhenUnset(t *testing.T) {
	env := newTestEnv(t)
	examID := env.newExam(t)
	svc := env.parameterService()

	params, err := svc.Get(context.Background(), examID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if params != engine.DefaultParams() {
		t.Fatalf("defaults: want=%+v got=%+v", engine.DefaultParams(), params)
	}
}

func TestParametersUpdateRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	examID := env.newExam(t)
	svc := env.parameterService()
	ctx := context.Background()

	want := engine.Params{Alpha: 1.5, Beta: 0.5, Gamma: 0.1, Threshold: 0.7, K: 3}
	if _, err := svc.Update(ctx, examID, want); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.Get(ctx, examID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != want {
		t.Fatalf("round trip: want=%+v got=%+v", want, got)
	}

	// A second update overwrites, not duplicates.
	want.Threshold = 0.4
	if _, err := svc.Update(ctx, examID, want); err != nil {
		t.Fatalf("second Update: %v", err)
	}
	got, err = svc.Get(ctx, examID)
	if err != nil {
		t.Fatalf("Get after second update: %v", err)
	}
	if got.Threshold != 0.4 {
		t.Fatalf("threshold after overwrite: want=0.4 got=%v", got.Threshold)
	}
}

func TestParametersUpdateRejectsOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	examID := env.newExam(t)
	svc := env.parameterService()

	bad := engine.Params{Alpha: 1, Beta: 0.3, Gamma: 0.2, Threshold: 1.5, K: 4}
	_, err := svc.Update(context.Background(), examID, bad)

	var rejected *ParamsRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ParamsRejectedError, got=%v", err)
	}

	// The stored value is untouched.
	got, gerr := svc.Get(context.Background(), examID)
	if gerr != nil {
		t.Fatalf("Get: %v", gerr)
	}
	if got != engine.DefaultParams() {
		t.Fatalf("rejected update persisted: %+v", got)
	}
}
