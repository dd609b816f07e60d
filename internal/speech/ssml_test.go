package speech

import (
	"strings"
	"testing"
)

func TestRatioToPercent(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0.5, "-100%"},
		{0.75, "-50%"},
		{0.9, "-20%"},
		{1, "+0%"},
		{1.1, "+10%"},
		{1.5, "+50%"},
		{2, "+100%"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := RatioToPercent(tt.ratio); got != tt.want {
				t.Errorf("RatioToPercent(%v) = %q, ожидали %q", tt.ratio, got, tt.want)
			}
		})
	}
}

func TestSSML(t *testing.T) {
	s := Synthesis{
		LanguageKey: "cs-CZ",
		Speaker:     "Vlasta",
		Text:        `Tom & Jerry <b>"hi"</b>`,
		Rate:        1.5,
		Pitch:       0.75,
	}
	got := s.SSML()

	for _, want := range []string{
		`xml:lang="cs-CZ"`,
		`<voice name="cs-CZ-VlastaNeural">`,
		`<prosody pitch="-50%" rate="+50%">`,
		`Tom &amp; Jerry &lt;b&gt;&#34;hi&#34;&lt;/b&gt;`,
		`</prosody></voice></speak>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("SSML() не содержит %q:\n%s", want, got)
		}
	}
}
