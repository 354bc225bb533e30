package deck

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestContent_UnmarshalForms(t *testing.T) {
	tests := []struct {
		in       string
		bulleted string
		empty    bool
	}{
		{`["Revenue up 10%","New markets"]`, "• Revenue up 10%\n• New markets", false},
		{`"single paragraph"`, "• single paragraph", false},
		{`[]`, "• ", true},
		{`""`, "• ", true},
		{`null`, "• ", true},
		{`["", ""]`, "• \n• ", true},
		{`["a", 3, null]`, "• a\n• 3", false},
	}
	for _, tt := range tests {
		var c Content
		if err := json.Unmarshal([]byte(tt.in), &c); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if c.Empty() != tt.empty {
			t.Errorf("%s: Empty() = %v", tt.in, c.Empty())
		}
		if got := c.Bulleted(); got != tt.bulleted {
			t.Errorf("%s: Bulleted() = %q, want %q", tt.in, got, tt.bulleted)
		}
	}
}

func TestContent_RejectsObject(t *testing.T) {
	var c Content
	if err := json.Unmarshal([]byte(`{"x":1}`), &c); err == nil {
		t.Fatal("expected error for object content")
	}
}

func TestSlideStructure_JSON(t *testing.T) {
	raw := `{"totalSlides":2,"slides":[
		{"slideNumber":1,"type":"title","title":"Q1 Report","content":[],"notes":""},
		{"slideNumber":2,"type":"content","title":"Highlights","content":"Revenue up","notes":"say it"}]}`
	var s SlideStructure
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatal(err)
	}
	if s.TotalSlides != 2 || len(s.Slides) != 2 {
		t.Fatalf("got %+v", s)
	}
	if !s.Slides[1].Content.Raw || s.Slides[1].Notes != "say it" {
		t.Errorf("slide 2 = %+v", s.Slides[1])
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var back SlideStructure
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	if back.Slides[1].Content.Joined() != "Revenue up" || !back.Slides[0].Content.Empty() {
		t.Errorf("re-decoded = %+v", back)
	}
}

func TestSlideStructure_Validate(t *testing.T) {
	if err := (&SlideStructure{}).Validate(); !errors.Is(err, ErrNoSlides) {
		t.Errorf("empty: %v", err)
	}
	bad := &SlideStructure{Slides: []Slide{{Type: "agenda"}}}
	if err := bad.Validate(); err == nil {
		t.Error("unknown type accepted")
	}
	ok := &SlideStructure{Slides: []Slide{{Type: SlideTitle}, {}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid: %v", err)
	}
	if ok.Title() != "" {
		t.Errorf("title = %q", ok.Title())
	}
}

func TestContentAnalysis_Normalize(t *testing.T) {
	a := ContentAnalysis{Themes: []string{"a", " ", "b", "c", "d", "e", "f"}}
	a.Normalize()
	if len(a.Themes) != MaxThemes || a.Themes[1] != "b" {
		t.Errorf("themes = %v", a.Themes)
	}
	if a.KeyPoints == nil {
		t.Error("KeyPoints nil")
	}
}
