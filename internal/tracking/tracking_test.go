package tracking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = "9205590164917312345678"

func TestExtractEmbeddedNumber(t *testing.T) {
	got := Extract("USPS TRACKING #: " + sample + " ZONE 4 / 2LB")
	require.Equal(t, []string{sample}, got)
}

func TestExtractDeduplicatesRepeatedLabel(t *testing.T) {
	text := "ship to: JOHN " + sample + " return svc\n--- page break ---\nref#" + sample + "#end"
	require.Equal(t, []string{sample}, Extract(text))
}

func TestExtractKeepsRightmostContiguousRun(t *testing.T) {
	first := "9400111899223344556677"
	text := "A" + first + "B" + sample + "C"
	// The loose pass still picks up the earlier, delimited occurrence.
	require.Equal(t, []string{sample, first}, Extract(text))
}

func TestExtractSpacedAndHyphenated(t *testing.T) {
	got := Extract("label 9205 5901 6491 7312 3456 78 done")
	require.Equal(t, []string{sample}, got)

	got = Extract("label 9505-5110-2233-4455-6677-88 done")
	require.Equal(t, []string{"9505511022334455667788"}, got)
}

func TestExtractRejectsInvalidPrefixAndLength(t *testing.T) {
	require.Empty(t, Extract("1234567890123456789012"))
	require.Empty(t, Extract("920559016491731234567"))
	require.Empty(t, Extract(""))
}

func TestAllIsRestartable(t *testing.T) {
	seq := All("x " + sample + " y")
	var first, second []string
	for n := range seq {
		first = append(first, n)
	}
	for n := range seq {
		second = append(second, n)
	}
	require.Equal(t, first, second)
	require.Equal(t, []string{sample}, first)
}

func TestScanAcrossTexts(t *testing.T) {
	other := "9400111899223344556677"
	got := Scan(sample, "note "+other, "again "+sample)
	require.Equal(t, []string{sample, other}, got)
}

func TestIsValid(t *testing.T) {
	require.True(t, IsValid(sample))
	require.True(t, IsValid("9205 5901 6491 7312 3456 78"))
	require.False(t, IsValid("9105590164917312345678"))
	require.False(t, IsValid(""))
}
