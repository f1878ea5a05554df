package validation

import (
	"testing"

	"github.com/hirosof/ProjectManagementTool/internal/types"
)

func TestName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty rejected", "", true},
		{"whitespace-only rejected", "   ", true},
		{"normal name accepted", "Launch plan", false},
		{"too long rejected", string(make([]byte, MaxNameLength+1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Name("name", tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("Name(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestDescription(t *testing.T) {
	if _, err := Description("description", ""); err != nil {
		t.Errorf("empty description should be valid, got %v", err)
	}
	if got, err := Description("description", "   "); err != nil || got != "" {
		t.Errorf("whitespace-only description should normalize to empty, got %q, err %v", got, err)
	}
	long := make([]byte, MaxDescriptionLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := Description("description", string(long)); err == nil {
		t.Error("expected error for over-length description")
	}
}

func TestStatusValue(t *testing.T) {
	tests := []struct {
		status  types.Status
		wantErr bool
	}{
		{types.StatusUnset, false},
		{types.StatusNotStarted, false},
		{types.StatusInProgress, false},
		{types.StatusDone, false},
		{types.Status("BOGUS"), true},
	}

	for _, tt := range tests {
		err := StatusValue("status", tt.status)
		if (err != nil) != tt.wantErr {
			t.Errorf("StatusValue(%v) error = %v, wantErr %v", tt.status, err, tt.wantErr)
		}
	}
}

func TestOrderIndex(t *testing.T) {
	if err := OrderIndex("order_index", -1); err == nil {
		t.Error("expected error for negative order index")
	}
	if err := OrderIndex("order_index", 0); err != nil {
		t.Errorf("order index 0 should be valid, got %v", err)
	}
}

func TestChainShortCircuits(t *testing.T) {
	var calls []string
	first := EntityValidator[types.Task](func(id int64, task *types.Task) error {
		calls = append(calls, "first")
		return &types.ValidationError{Field: "x", Reason: "fail"}
	})
	second := EntityValidator[types.Task](func(id int64, task *types.Task) error {
		calls = append(calls, "second")
		return nil
	})

	err := Chain(first, second)(1, &types.Task{})
	if err == nil {
		t.Fatal("expected error from first validator")
	}
	if len(calls) != 1 || calls[0] != "first" {
		t.Errorf("expected chain to stop after first validator, got calls=%v", calls)
	}
}
