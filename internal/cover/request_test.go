package cover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidate(t *testing.T) {
	valid := Request{ImageData: []byte{1}, Title: "t"}
	require.NoError(t, valid.Validate())

	missingImage := Request{Title: "t"}
	err := missingImage.Validate()
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	missingTitle := Request{ImageData: []byte{1}, Title: "  \n "}
	err = missingTitle.Validate()
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestSizeForExactRatios(t *testing.T) {
	cases := []struct {
		ratio      string
		wNum, hNum int
	}{
		{"16:9", 16, 9},
		{"9:16", 9, 16},
		{"3:4", 3, 4},
		{"4:3", 4, 3},
		{"1:1", 1, 1},
	}

	for _, tc := range cases {
		w, h := SizeFor(tc.ratio)
		// cross-multiplication keeps the check exact, no float rounding
		assert.Equal(t, w*tc.hNum, h*tc.wNum, "ratio %s: %dx%d", tc.ratio, w, h)
	}
}

func TestSizeForUnmappedDefaults(t *testing.T) {
	for _, ratio := range []string{"21:9", "2:3", "", "weird"} {
		w, h := SizeFor(ratio)
		assert.Equal(t, 1024, w)
		assert.Equal(t, 1024, h)
	}
}

func TestRequestRatios(t *testing.T) {
	assert.Equal(t, []string{"16:9"}, Request{}.Ratios())
	assert.Equal(t, []string{"9:16"}, Request{AspectRatio: "9:16"}.Ratios())
	assert.Equal(t, BatchRatios, Request{AspectRatio: RatioAll}.Ratios())

	// batch expansion must not alias the package-level slice
	got := Request{AspectRatio: RatioAll}.Ratios()
	got[0] = "mutated"
	assert.Equal(t, "16:9", BatchRatios[0])
}
