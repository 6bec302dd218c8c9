package utils

import (
	"errors"
	"testing"
)

func TestUserError(t *testing.T) {
	tests := []struct {
		name    string
		message string
		hint    string
		err     error
		want    string
	}{
		{
			name:    "with hint and cause",
			message: "Failed to load config",
			hint:    "Check if config file exists",
			err:     errors.New("file not found"),
			want:    "Failed to load config\n  cause: file not found\n  hint:  Check if config file exists",
		},
		{
			name:    "without hint",
			message: "Invalid input",
			want:    "Invalid input",
		},
		{
			name:    "with hint only",
			message: "Failed to create file",
			hint:    "Check file permissions",
			want:    "Failed to create file\n  hint:  Check file permissions",
		},
		{
			name:    "with cause only",
			message: "Trace not found",
			err:     errors.New("stat trace.json: no such file"),
			want:    "Trace not found\n  cause: stat trace.json: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ue := NewUserError(tt.message, tt.hint, tt.err)
			if got := ue.Error(); got != tt.want {
				t.Errorf("UserError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	ve := NewValidationError("name", "cannot be empty")
	want := "invalid name: cannot be empty"

	if got := ve.Error(); got != want {
		t.Errorf("ValidationError.Error() = %v, want %v", got, want)
	}
}

func TestUserErrorUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	ue := NewUserError("wrapper", "retry", originalErr)

	if err := ue.Unwrap(); !errors.Is(err, originalErr) {
		t.Error("Unwrap() did not return original error")
	}
}

func TestExitError(t *testing.T) {
	tests := []struct {
		name string
		err  *ExitError
		want string
	}{
		{"with message", NewExitError(2, "risk high at or above threshold medium"), "risk high at or above threshold medium"},
		{"without message", NewExitError(3, ""), "exit status 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ExitError.Error() = %v, want %v", got, tt.want)
			}
			var target *ExitError
			if !errors.As(error(tt.err), &target) || target.Code != tt.err.Code {
				t.Error("errors.As did not find ExitError")
			}
		})
	}
}
