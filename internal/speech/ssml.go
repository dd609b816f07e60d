package speech

import (
	"encoding/xml"
	"math"
	"strconv"
	"strings"
)

// Synthesis — параметры озвучивания одного текста.
type Synthesis struct {
	// LanguageKey — локаль, например "cs-CZ"
	LanguageKey string
	// Speaker — отображаемое имя голоса, например "Vlasta"
	Speaker string
	Text    string
	// Rate, Pitch — множители в диапазоне [0.5, 2], 1 — без изменений
	Rate  float64
	Pitch float64
}

// VoiceName возвращает полное имя нейронного голоса: "cs-CZ-VlastaNeural".
func (s Synthesis) VoiceName() string {
	return s.LanguageKey + "-" + s.Speaker + "Neural"
}

// SSML строит документ для синтеза. Текст экранируется.
func (s Synthesis) SSML() string {
	var b strings.Builder
	b.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="https://www.w3.org/2001/mstts" xml:lang="`)
	b.WriteString(escape(s.LanguageKey))
	b.WriteString(`"><voice name="`)
	b.WriteString(escape(s.VoiceName()))
	b.WriteString(`"><prosody pitch="`)
	b.WriteString(RatioToPercent(s.Pitch))
	b.WriteString(`" rate="`)
	b.WriteString(RatioToPercent(s.Rate))
	b.WriteString(`">`)
	b.WriteString(escape(s.Text))
	b.WriteString(`</prosody></voice></speak>`)
	return b.String()
}

// RatioToPercent переводит множитель в относительное значение prosody.
// r < 1: (2 - 2r) * -100%, например 0.75 → "-50%".
// r >= 1: +(r - 1) * 100%, например 1.5 → "+50%".
func RatioToPercent(r float64) string {
	var v float64
	sign := "+"
	if r < 1 {
		v = (2 - 2*r) * -100
		sign = ""
	} else {
		v = (r - 1) * 100
	}
	v = math.Round(v*100) / 100
	return sign + strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
