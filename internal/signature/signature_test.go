package signature

import (
	"errors"
	"reflect"
	"testing"

	"mbox-addressbook/internal/models"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"415-555-0199", "415-555-0199", false},
		{"(415) 555-0199", "415-555-0199", false},
		{"+1 415.555.0199", "415-555-0199", false},
		{"111-222-3333", "", true},
		{"000-000-0000", "", true},
		{"415-155-0199", "", true},
		{"415-555-5555", "", true},
		{"555-0199", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NormalizePhone() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("NormalizePhone() = %v, want %v", got, tt.want)
			}
			if err != nil && !errors.Is(err, models.ErrValidationRejected) {
				t.Errorf("NormalizePhone() error %v does not match ErrValidationRejected", err)
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"Senior Loan Officer", true},
		{"Branch Manager", true},
		{"VP, Mortgage Lending", true},
		{"aaaaaaaaaaSeniorLoanOfficer", false},
		{"MORTGAGE CONSULTANT", false},
		{"SENIOR LOAN OFFICER", true},
		{"font-family: Arial; style=color", false},
		{"Officer inline", false},
		{"VP", false},
		{"Thanks for the update", false},
		{"Loan Officer 12345678", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateTitle(tt.input)
			if (err == nil) != tt.ok {
				t.Errorf("ValidateTitle(%q) error = %v, want ok %v", tt.input, err, tt.ok)
			}
		})
	}
}

func TestValidateCompany(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"Rate Mortgage Inc", true},
		{"First American Title Co.", true},
		{"Smith & Sons Realty, LLC", true},
		{"Acme", false},
		{"ABCDEFGHIJKLMNOP Mortgage", false},
		{"Mortgage 1234 5678 9012", false},
		{"Beautiful Sunsets Daily", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateCompany(tt.input)
			if (err == nil) != tt.ok {
				t.Errorf("ValidateCompany(%q) error = %v, want ok %v", tt.input, err, tt.ok)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jane Doe", "Jane Doe"},
		{`"Doe, Jane"`, "Jane Doe"},
		{"Mary Anne O'Brien-Smith", "Mary Anne O'Brien-Smith"},
		{"jane@rate.com", ""},
		{"Rate Support Team", ""},
		{"Jane", ""},
		{"Unit 42 Escrow", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, _ := NormalizeName(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	first, last := SplitName("Mary Anne Smith")
	if first != "Mary Anne" || last != "Smith" {
		t.Errorf("SplitName() = %q, %q", first, last)
	}
}

func TestFindNMLS(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"NMLS# 123456", []string{"123456"}},
		{"nmls id: 7654321", []string{"7654321"}},
		{"NMLS No. 4321 | Company NMLS 99887", []string{"4321", "99887"}},
		{"NMLS pending", nil},
	}
	for _, tt := range tests {
		if got := FindNMLS(tt.line); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FindNMLS(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestWindow(t *testing.T) {
	lines := []string{
		"Hi Bob,",
		"Rates look good.",
		"",
		"Jane Doe",
		"On Mon, Jan 1, 2024 at 10:00 AM Bob <bob@example.com> wrote:",
		"> Bob Smith",
		"> Title Officer",
	}
	got := Window(lines, 2)
	want := []string{"Rates look good.", "Jane Doe"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Window() = %q, want %q", got, want)
	}

	withDelimiter := []string{"Thanks,", "--", "Jane Doe", "> quoted", "Loan Officer"}
	got = Window(withDelimiter, 15)
	want = []string{"Jane Doe", "Loan Officer"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Window() = %q, want %q", got, want)
	}
}

func TestExtract(t *testing.T) {
	body := []string{
		"Thanks,",
		"--",
		"Jane Doe",
		"Senior Loan Officer | Rate Mortgage Inc",
		"NMLS# 123456",
		"Cell: (415) 555-0199  Office 111-222-3333",
		"Direct 415.555.0199",
		"jane@rate.com",
	}

	x := New(models.SignatureConfig{})
	obs := x.Extract("Jane@Rate.com", body)

	if obs.Email != "jane@rate.com" {
		t.Errorf("Email = %q", obs.Email)
	}
	checks := []struct {
		field string
		got   []string
		want  []string
	}{
		{"phones", obs.PhoneCandidates, []string{"415-555-0199"}},
		{"titles", obs.TitleCandidates, []string{"Senior Loan Officer"}},
		{"companies", obs.CompanyCandidates, []string{"Rate Mortgage Inc"}},
		{"nmls", obs.NMLSCandidates, []string{"123456"}},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(c.got, c.want) {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
	if x.Rejected()["phone"] != 1 {
		t.Errorf("Rejected()[phone] = %d, want 1", x.Rejected()["phone"])
	}
}

func TestObserve_NameFromDisplayName(t *testing.T) {
	x := New(models.SignatureConfig{TrailingLines: 5})
	obs := x.Observe(&models.Email{
		From:      "jane@rate.com",
		FromName:  "Doe, Jane",
		Subject:   "Pre-approval",
		BodyLines: []string{"See attached."},
	})
	if obs.NameCandidate != "Jane Doe" {
		t.Errorf("NameCandidate = %q, want Jane Doe", obs.NameCandidate)
	}
	if obs.Subject != "Pre-approval" {
		t.Errorf("Subject = %q", obs.Subject)
	}
	if len(obs.PhoneCandidates)+len(obs.TitleCandidates)+len(obs.CompanyCandidates) > 0 {
		t.Errorf("unexpected candidates: %+v", obs)
	}
}
