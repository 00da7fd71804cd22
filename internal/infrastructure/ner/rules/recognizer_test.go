package rules

import (
	"context"
	"reflect"
	"testing"
)

func TestOrganizations(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single corporation",
			text: "Annual report filed by XYZ Corporation for investors.",
			want: []string{"XYZ Corporation"},
		},
		{
			name: "comma before designator",
			text: "Acme Holdings, Inc. reported revenue growth.",
			want: []string{"Acme Holdings, Inc."},
		},
		{
			name: "two names joined by and",
			text: "Acme Inc. and Beta Corp. signed an agreement.",
			want: []string{"Acme Inc.", "Beta Corp."},
		},
		{
			name: "bare designator is ignored",
			text: "The Company recognized revenue.",
			want: nil,
		},
		{
			name: "comma ends a name without designator",
			text: "Apple, Google Inc. and others",
			want: []string{"Google Inc."},
		},
		{
			name: "connectors inside a name",
			text: "Bank of America Corporation",
			want: []string{"Bank of America Corporation"},
		},
		{
			name: "upper case cover page",
			text: "HEWLETT PACKARD ENTERPRISE COMPANY\n(Exact name of registrant)",
			want: []string{"HEWLETT PACKARD ENTERPRISE COMPANY"},
		},
		{
			name: "duplicates keep first appearance",
			text: "Beta Ltd supplies Acme Inc.\nAcme Inc. owns Beta Ltd",
			want: []string{"Beta Ltd", "Acme Inc."},
		},
	}

	r := NewRecognizer()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Organizations(context.Background(), tc.text)
			if err != nil {
				t.Fatalf("Organizations() error = %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Organizations() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestOrganizationsHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRecognizer().Organizations(ctx, "Acme Inc."); err == nil {
		t.Fatalf("expected context error")
	}
}
