package brain

import "testing"

func TestIsLikelyTaskCommand(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"add buy milk tomorrow", true},
		{"buy milk", true},
		{"pick up the dry cleaning", true},
		{"pay rent on friday", true},
		{"remind me to call mom at 18:00", true},
		{"delete the gym task", true},
		{"meeting on 2025-09-01", true},
		{"postpone everything", true},
		{"明天提醒我交房租", true},
		{"每天跑步", true},

		{"", false},
		{"ok", false},
		{"thanks", false},
		{"好的", false},
		{"hello", false},
		{"how are you doing", false},
		{"nice weather we are having", false},
	}
	for _, tc := range cases {
		if got := IsLikelyTaskCommand(tc.input); got != tc.want {
			t.Errorf("IsLikelyTaskCommand(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
