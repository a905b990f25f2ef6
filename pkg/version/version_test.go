package version

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Version
		wantErr bool
	}{
		{"0.3.0", Version{0, 3, 0}, false},
		{"1.0.2", Version{1, 0, 2}, false},
		{"1.4", Version{1, 4, 0}, false},
		{"", Version{}, true},
		{"1", Version{}, true},
		{"1.2.3.4", Version{}, true},
		{"a.b.c", Version{}, true},
		{"1..3", Version{}, true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCurrentParses(t *testing.T) {
	v, err := Parse(Current)
	if err != nil {
		t.Fatalf("Parse(Current): %v", err)
	}
	if v.String() != Current {
		t.Errorf("String() = %q, want %q", v.String(), Current)
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"0.3.0", "0.3.1", true},
		{"0.3.0", "0.4.0", false},
		{"1.0.0", "1.7.2", true},
		{"1.0.0", "2.0.0", false},
		{"0.3.0", "1.3.0", false},
	}

	for _, tt := range tests {
		a, err := Parse(tt.a)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.a, err)
		}
		b, err := Parse(tt.b)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.b, err)
		}
		if got := a.Compatible(b); got != tt.want {
			t.Errorf("%s compatible with %s = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"0.3.0", "0.3.0", 0},
		{"0.3.0", "0.3.1", -1},
		{"0.4.0", "0.3.9", 1},
		{"1.0.0", "0.9.9", 1},
	}

	for _, tt := range tests {
		a, _ := Parse(tt.a)
		b, _ := Parse(tt.b)
		if got := a.Compare(b); got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
