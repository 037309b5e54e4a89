package cloudimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVTTToText(t *testing.T) {
	raw := "\ufeffWEBVTT\n\n" +
		"NOTE exported by the recorder\nsecond note line\n\n" +
		"1\n00:00:01.000 --> 00:00:04.000\nAnn Lee: The export keeps timing out.\n\n" +
		"2\n00:00:04.500 --> 00:00:06.000\nAnn Lee: Every single Monday.\n\n" +
		"3\n00:00:06.100 --> 00:00:09.000\n<v Bob>We are <b>looking</b> into it</v>\n\n" +
		"4\n00:00:09.000 --> 00:00:10.000\n(silence)\n"

	want := "Ann Lee: The export keeps timing out. Every single Monday.\n" +
		"Bob: We are looking into it\n" +
		"(silence)"
	assert.Equal(t, want, VTTToText(raw))
}

func TestVTTToTextEmpty(t *testing.T) {
	assert.Equal(t, "", VTTToText("WEBVTT\n\n1\n00:00:01.000 --> 00:00:02.000\n\n"))
	assert.Equal(t, "", VTTToText(""))
}

func TestVTTToTextShortTimings(t *testing.T) {
	raw := "WEBVTT\n\n00:01.000 --> 00:02.000\nCarol: Pricing is confusing\n"
	assert.Equal(t, "Carol: Pricing is confusing", VTTToText(raw))
}
