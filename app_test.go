package main

import (
	"errors"
	"testing"

	"pitchdojo/internal/domain"
)

func TestSessionReasonMessages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		reason domain.SessionStateReason
		want   string
	}{
		{domain.SessionReasonCallRequested, "Connecting..."},
		{domain.SessionReasonCallConnected, "Call connected"},
		{domain.SessionReasonTimeUp, "Time is up; waiting for the prospect to finish"},
		{domain.SessionReasonFinalTurnDone, "Call ended"},
		{domain.SessionReasonGraceExpired, "Call ended"},
		{domain.SessionReasonEndedByUser, "Call ended by you"},
		{domain.SessionReasonFeedbackReady, "Feedback ready"},
		{domain.SessionStateReason("unheard_of"), ""},
	}
	for _, tc := range cases {
		if got := sessionReasonMessage(tc.reason); got != tc.want {
			t.Fatalf("sessionReasonMessage(%s) = %q, want %q", tc.reason, got, tc.want)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   domain.ErrorCode
		detail string
		want   string
	}{
		{domain.ErrorCodePermissionDenied, "pulse: denied", "Microphone permission denied"},
		{domain.ErrorCodeDeviceUnavailable, "", "No usable audio device found"},
		{domain.ErrorCodeAccessDenied, "", "API key was rejected"},
		{domain.ErrorCode("mystery"), "socket melted", "socket melted"},
		{domain.ErrorCode("mystery"), "", "Unknown error"},
	}
	for _, tc := range cases {
		if got := errorMessage(tc.code, tc.detail); got != tc.want {
			t.Fatalf("errorMessage(%s, %q) = %q, want %q", tc.code, tc.detail, got, tc.want)
		}
	}
}

func TestGetStatusBeforeStartup(t *testing.T) {
	t.Parallel()

	app := NewApp()
	status := app.GetStatus()
	if status.Active || status.State != domain.SessionStateIdle {
		t.Fatalf("unexpected pre-startup status: %+v", status)
	}

	app.bootErr = errors.New("GEMINI_API_KEY is not set")
	status = app.GetStatus()
	if status.Message != "GEMINI_API_KEY is not set" {
		t.Fatalf("boot error must surface in status, got %+v", status)
	}

	if _, err := app.StartCall(domain.SessionOptions{}); err == nil {
		t.Fatalf("StartCall must fail while the app is not initialized")
	}
}
