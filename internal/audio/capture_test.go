package audio

import (
	"errors"
	"testing"

	"pitchdojo/internal/ports"
)

func TestClassifyStartFailure(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		stderr string
		want   error
	}{
		{name: "denied", stderr: "pulse: Permission denied", want: ports.ErrPermissionDenied},
		{name: "not permitted", stderr: "Operation not permitted", want: ports.ErrPermissionDenied},
		{name: "missing device", stderr: "No such device: front:1", want: ports.ErrDeviceUnavailable},
		{name: "busy device", stderr: "Device or resource busy", want: ports.ErrDeviceUnavailable},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := classifyStartFailure(errors.New("exit status 1"), tc.stderr)
			if !errors.Is(err, tc.want) {
				t.Fatalf("classifyStartFailure(%q) = %v, want %v", tc.stderr, err, tc.want)
			}
		})
	}
}

func TestClassifyStartFailureGeneric(t *testing.T) {
	t.Parallel()

	err := classifyStartFailure(errors.New("exit status 1"), "something exploded")
	if errors.Is(err, ports.ErrPermissionDenied) || errors.Is(err, ports.ErrDeviceUnavailable) {
		t.Fatalf("generic failure must not map to a sentinel: %v", err)
	}
	if err == nil {
		t.Fatalf("expected an error")
	}
}
