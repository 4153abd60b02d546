package matcher

import (
	"slices"
	"testing"
)

func TestMatch(t *testing.T) {
	m := New([]string{"cat", "акция", "iPhone 15", "скидка"})

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "whole word", text: "my cat sleeps", want: []string{"cat"}},
		{name: "case insensitive", text: "CAT!", want: []string{"cat"}},
		{name: "substring of larger word", text: "category listing", want: nil},
		{name: "suffix of larger word", text: "bobcat", want: nil},
		{name: "cyrillic with punctuation", text: "Большая акция!", want: []string{"акция"}},
		{name: "cyrillic inflected form", text: "Большие акциями", want: nil},
		{name: "cyrillic uppercase", text: "АКЦИЯ дня", want: []string{"акция"}},
		{name: "multi word keyword", text: "New iphone 15 in stock", want: []string{"iphone 15"}},
		{name: "multi word keyword needs boundary", text: "iphone 150", want: nil},
		{name: "emoji glued to word", text: "🔥акция🔥", want: []string{"акция"}},
		{name: "emoji inside word", text: "ак😀ция", want: []string{"акция"}},
		{name: "several keywords", text: "акция и скидка", want: []string{"акция", "скидка"}},
		{name: "underscore is word char", text: "cat_food", want: nil},
		{name: "digit is word char", text: "cat2", want: nil},
		{name: "empty text", text: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.text)
			if !slices.Equal(got.Keywords, tt.want) {
				t.Errorf("Match(%q) = %v, want %v", tt.text, got.Keywords, tt.want)
			}
			if got.Matched() != (len(tt.want) > 0) {
				t.Errorf("Match(%q).Matched() = %v", tt.text, got.Matched())
			}
		})
	}
}

func TestNew_NormalisesKeywords(t *testing.T) {
	m := New([]string{"  Sale ", "", "sale", "SALE", "Акция"})
	want := []string{"sale", "акция"}
	if got := m.Keywords(); !slices.Equal(got, want) {
		t.Errorf("Keywords() = %v, want %v", got, want)
	}
}

func TestMatch_NoKeywords(t *testing.T) {
	if New(nil).Match("anything").Matched() {
		t.Error("matcher without keywords matched")
	}
}

func TestMatch_KeywordWithSymbolEdge(t *testing.T) {
	m := New([]string{"#sale"})
	if !m.Match("big #sale today").Matched() {
		t.Error("expected #sale to match after a space")
	}
	if m.Match("#salesman").Matched() {
		t.Error("expected #salesman not to match")
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hi 😀", "hi "},
		{"🇺🇦flag", "flag"},
		{"✂cut", "cut"},
		{"plain текст", "plain текст"},
		{"🚀🚀", ""},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
