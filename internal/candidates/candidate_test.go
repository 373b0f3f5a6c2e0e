package candidates

import (
	"testing"
	"time"
)

func TestAgeOn(t *testing.T) {
	birth := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2024, 6, 14, 23, 59, 0, 0, time.UTC), 33},
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), 34},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 34},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 33},
		{time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		if got := AgeOn(birth, tc.now); got != tc.want {
			t.Errorf("AgeOn(%s) = %d, want %d", tc.now.Format(time.DateOnly), got, tc.want)
		}
	}

	leap := time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC)
	if got := AgeOn(leap, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)); got != 22 {
		t.Errorf("leap day birthday before Mar 1 = %d, want 22", got)
	}
	if got := AgeOn(leap, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)); got != 23 {
		t.Errorf("leap day birthday on Mar 1 = %d, want 23", got)
	}
}

func TestRecordAgeAt(t *testing.T) {
	var r Record
	if r.AgeAt(time.Now()) != nil {
		t.Fatal("no birth date means no age")
	}
	birth := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	r.BirthDate = &birth
	if got := r.AgeAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)); got == nil || *got != 24 {
		t.Fatalf("expected 24, got %v", got)
	}
}

func TestFullNameSkipsEmptyParts(t *testing.T) {
	c := Candidate{FirstName: "Ana"}
	if got := c.FullName(); got != "Ana" {
		t.Fatalf("got %q", got)
	}
	c.FirstSurname, c.SecondSurname = "Soto", "Pérez"
	if got := c.FullName(); got != "Ana Soto Pérez" {
		t.Fatalf("got %q", got)
	}
}
