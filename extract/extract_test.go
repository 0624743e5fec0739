package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEmails(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty text", "", nil},
		{"no emails", "just a regular comment", nil},
		{
			"embedded in sentence",
			"reach me at jane.doe@outlook.com if interested",
			[]string{"jane.doe@outlook.com"},
		},
		{
			"case variants collapse",
			"Jane.Doe@Outlook.com or jane.doe@outlook.com",
			[]string{"jane.doe@outlook.com"},
		},
		{"placeholder domain", "contact@example.com", nil},
		{"test local part", "test@realmail.com", nil},
		{"example local part", "example@realmail.com", nil},
		{"image artifact", "icon.png@cdn.example", nil},
		{"image extension after match", "see logo@assets.site.jpg for details", nil},
		{"below minimum length", "t@e.co", nil},
		{
			"multiple distinct",
			"a@other.org and b@gmail.com wrote this",
			[]string{"a@other.org", "b@gmail.com"},
		},
		{
			"plus and percent in local part",
			"dev+spam@fastmail.com",
			[]string{"dev+spam@fastmail.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Emails(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Emails(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestEmailsIdempotent(t *testing.T) {
	text := "ping sam@gmail.com or sam@gmail.com or other@zoho.com"
	first := Emails(text)
	second := Emails(text)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Emails not idempotent (-first +second):\n%s", diff)
	}
	if len(first) != 2 {
		t.Errorf("Emails returned %d entries, want 2 (duplicates must collapse)", len(first))
	}
}

func TestRank(t *testing.T) {
	tests := []struct {
		name   string
		emails []string
		want   []string
	}{
		{
			"priority tier first, stable within tiers",
			[]string{"a@other.com", "b@gmail.com", "c@yahoo.com"},
			[]string{"b@gmail.com", "c@yahoo.com", "a@other.com"},
		},
		{
			"all priority keeps discovery order",
			[]string{"z@yahoo.com", "a@gmail.com"},
			[]string{"z@yahoo.com", "a@gmail.com"},
		},
		{
			"no priority keeps discovery order",
			[]string{"z@zoho.com", "a@aol.com"},
			[]string{"z@zoho.com", "a@aol.com"},
		},
		{"single entry unchanged", []string{"a@other.com"}, []string{"a@other.com"}},
		{"nil stays nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.emails)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Rank(%v) mismatch (-want +got):\n%s", tt.emails, diff)
			}
		})
	}
}

func TestIsPriorityDomain(t *testing.T) {
	if !IsPriorityDomain("gmail.com") {
		t.Error("IsPriorityDomain(gmail.com) = false, want true")
	}
	if IsPriorityDomain("protonmail.com") {
		t.Error("IsPriorityDomain(protonmail.com) = true, want false")
	}
}
