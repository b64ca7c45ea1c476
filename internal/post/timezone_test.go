package post

import (
	"errors"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		label string
		local string
		want  time.Time
	}{
		{name: "positive offset", label: "UTC+3", local: "13-11-2023 18:30", want: time.Date(2023, 11, 13, 21, 30, 0, 0, time.UTC)},
		{name: "negative offset", label: "UTC-5", local: "13-11-2023 18:30", want: time.Date(2023, 11, 13, 13, 30, 0, 0, time.UTC)},
		{name: "zero offset", label: "UTC+0", local: "01-01-2024 00:00", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "unsigned treated as positive", label: "UTC3", local: "13-11-2023 18:30", want: time.Date(2023, 11, 13, 21, 30, 0, 0, time.UTC)},
		{name: "day rollover", label: "UTC+12", local: "31-12-2023 20:00", want: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.label, tt.local)
			if err != nil {
				t.Fatalf("Normalize(%q, %q) error: %v", tt.label, tt.local, err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("Normalize = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeBadDateTime(t *testing.T) {
	t.Parallel()
	for _, local := range []string{"", "2023-11-13 18:30", "13-11-2023", "13-11-2023 18:30:00", "not a date", "32-01-2024 10:00"} {
		if _, err := Normalize("UTC+0", local); !errors.Is(err, ErrBadFormat) {
			t.Fatalf("Normalize(%q): err = %v, want ErrBadFormat", local, err)
		}
	}
}

func TestLabels(t *testing.T) {
	t.Parallel()
	labels := Labels()
	if len(labels) != 25 {
		t.Fatalf("len(Labels()) = %d, want 25", len(labels))
	}
	if labels[0] != "UTC-12" || labels[len(labels)-1] != "UTC+12" {
		t.Fatalf("unexpected label range: %s .. %s", labels[0], labels[len(labels)-1])
	}
	for _, l := range labels {
		if !ValidLabel(l) {
			t.Fatalf("generated label %q not valid", l)
		}
	}
	if ValidLabel("UTC+13") || ValidLabel("GMT+3") || ValidLabel("") {
		t.Fatal("out-of-range label accepted")
	}
}
