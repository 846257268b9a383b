package domain

import "testing"

func TestSkillLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code, want string
	}{
		{"design", "Design & Creative"},
		{"development", "Development & Tech"},
		{"other", "Other"},
		{"", "Not specified"},
		{"blacksmithing", "blacksmithing"}, // 未知代号原样透传
	}
	for _, tt := range tests {
		if got := SkillLabel(tt.code); got != tt.want {
			t.Errorf("SkillLabel(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestChallengeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code, want string
	}{
		{"finding_clients", "Finding clients"},
		{"getting_paid", "Getting paid on time"},
		{"", "Not specified"},
		{"taxes", "taxes"},
	}
	for _, tt := range tests {
		if got := ChallengeLabel(tt.code); got != tt.want {
			t.Errorf("ChallengeLabel(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestQuestionText(t *testing.T) {
	t.Parallel()

	if got := QuestionPrimarySkill.Text(); got == "" {
		t.Error("QuestionPrimarySkill.Text() is empty")
	}
	if got := QuestionID("bogus").Text(); got != "" {
		t.Errorf("unknown question text = %q, want empty", got)
	}
}
