package targets

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolvePorts_Valid(t *testing.T) {
	cases := map[string][]uint16{
		"22":               {22},
		"80,22,22,80":      {22, 80},
		"1-3":              {1, 2, 3},
		" 22 , 80 ":        {22, 80},
		"22,,80,":          {22, 80},
		"10-5":             {5, 6, 7, 8, 9, 10},
		"70000,abc,10-5":   {5, 6, 7, 8, 9, 10},
		"0-2":              {1, 2},
		"65534-70000":      {65534, 65535},
		"22,80,8000-8002":  {22, 80, 8000, 8001, 8002},
		"443, 1-2 ,x-y,22": {1, 2, 22, 443},
	}
	for spec, want := range cases {
		t.Run(spec, func(t *testing.T) {
			got, err := ResolvePorts(spec, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got.Ports(), want) {
				t.Fatalf("got %v want %v", got.Ports(), want)
			}
		})
	}
}

func TestResolvePorts_Empty(t *testing.T) {
	cases := []string{"", ",,,", "   ", "abc", "0", "65536,70000", "70000-80000"}
	for _, spec := range cases {
		t.Run(spec, func(t *testing.T) {
			got, err := ResolvePorts(spec, nil)
			if !errors.Is(err, ErrNoPorts) {
				t.Fatalf("expected ErrNoPorts for %q, got %v", spec, err)
			}
			if !got.Empty() {
				t.Fatalf("expected empty set, got %v", got.Ports())
			}
		})
	}
}

func TestResolvePorts_Warnings(t *testing.T) {
	var warned []TokenError
	_, err := ResolvePorts("70000,abc,10-5,1-x,0", func(e TokenError) {
		warned = append(warned, e)
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []TokenError{
		{Token: "70000", Reason: "out-of-range port"},
		{Token: "abc", Reason: "invalid port"},
		{Token: "1-x", Reason: "invalid port range"},
		{Token: "0", Reason: "out-of-range port"},
	}
	if !reflect.DeepEqual(warned, want) {
		t.Fatalf("warnings = %v, want %v", warned, want)
	}
}

func TestResolvePorts_Ordering(t *testing.T) {
	got, err := ResolvePorts("9000,1-100,443,50-60,65535,2", nil)
	if err != nil {
		t.Fatal(err)
	}
	ports := got.Ports()
	for i := 1; i < len(ports); i++ {
		if ports[i] <= ports[i-1] {
			t.Fatalf("not strictly ascending at %d: %d after %d", i, ports[i], ports[i-1])
		}
	}
	for _, p := range ports {
		if p < MinPort {
			t.Fatalf("port %d below range", p)
		}
	}
	if got.Len() != 103 {
		t.Fatalf("Len = %d, want 103", got.Len())
	}
	if got.First() != 1 || got.Last() != 65535 {
		t.Fatalf("bounds = %d-%d, want 1-65535", got.First(), got.Last())
	}
}

func TestResolvePorts_Idempotent(t *testing.T) {
	const spec = "443,22-25,abc,80,25"
	a, errA := ResolvePorts(spec, nil)
	b, errB := ResolvePorts(spec, nil)
	if errA != nil || errB != nil {
		t.Fatalf("errors: %v %v", errA, errB)
	}
	if !reflect.DeepEqual(a.Ports(), b.Ports()) {
		t.Fatalf("repeat resolve differs: %v vs %v", a.Ports(), b.Ports())
	}
}

func TestPortSet_PortsIsCopy(t *testing.T) {
	s := NewPortSet(80, 22)
	p := s.Ports()
	p[0] = 9999
	if s.First() != 22 {
		t.Fatalf("PortSet mutated through Ports(): first = %d", s.First())
	}
}

func TestPortSet_String(t *testing.T) {
	tests := []struct {
		in   []int
		want string
	}{
		{nil, ""},
		{[]int{22}, "22"},
		{[]int{80, 81, 82, 22, 443}, "22,80-82,443"},
		{[]int{1, 2, 0, 70000}, "1-2"},
	}
	for _, tt := range tests {
		if got := NewPortSet(tt.in...).String(); got != tt.want {
			t.Errorf("NewPortSet(%v).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}
