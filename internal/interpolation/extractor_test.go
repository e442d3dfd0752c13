package interpolation

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name  string
		input string
		want  []Block
	}{
		{
			name:  "bare variable",
			input: "{{ pkg }}",
			want:  []Block{{Original: "{{ pkg }}", Name: "pkg"}},
		},
		{
			name:  "dotted access",
			input: "/opt/{{ item.name }}/bin",
			want:  []Block{{Original: "{{ item.name }}", Name: "item.name"}},
		},
		{
			name:  "default variable",
			input: "{{ version | default(fallback_version) }}",
			want:  []Block{{Original: "{{ version | default(fallback_version) }}", Name: "version", Default: "fallback_version"}},
		},
		{
			name:  "quoted default is a literal",
			input: "{{ version | default('1.0') }}",
			want:  []Block{{Original: "{{ version | default('1.0') }}", Name: "version"}},
		},
		{
			name:  "numeric default is a literal",
			input: "{{ port | default(8080) }}",
			want:  []Block{{Original: "{{ port | default(8080) }}", Name: "port"}},
		},
		{
			name:  "list default is a literal",
			input: "{{ extra | default([]) }}",
			want:  []Block{{Original: "{{ extra | default([]) }}", Name: "extra"}},
		},
		{
			name:  "first_found lookup",
			input: "{{ lookup('first_found', params, candidate_files) }}",
			want:  []Block{{Original: "{{ lookup('first_found', params, candidate_files) }}", Name: "candidate_files"}},
		},
		{
			name:  "several blocks",
			input: "{{ a }}-{{ b | lower }}",
			want: []Block{
				{Original: "{{ a }}", Name: "a"},
				{Original: "{{ b | lower }}", Name: "b"},
			},
		},
		{
			name:  "no template",
			input: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestHasTemplate(t *testing.T) {
	e := NewExtractor()
	if !e.HasTemplate("x {{ y }}") {
		t.Error("HasTemplate() = false, want true")
	}
	if e.HasTemplate("x { y }") || e.HasTemplate("{{}}") {
		t.Error("HasTemplate() = true, want false")
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"s", "s"},
		{5, "5"},
		{9.9, "9.9"},
		{2.0, "2.0"},
		{-3.0, "-3.0"},
		{1e16, "1e+16"},
		{-2.5e20, "-2.5e+20"},
		{math.Inf(1), "inf"},
		{math.NaN(), "nan"},
		{true, "True"},
		{nil, "None"},
		{[]any{"a", 1}, "['a', 1]"},
		{map[string]any{"b": "x", "a": false}, "{'a': False, 'b': 'x'}"},
	}

	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
