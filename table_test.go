package cw

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharToRepresentationRoundTrip(t *testing.T) {
	cases := map[rune]string{
		'P': ".--.",
		'A': ".-",
		'R': ".-.",
		'I': "..",
		'S': "...",
	}
	for c, rep := range cases {
		got, ok := CharToRepresentation(c)
		assert.True(t, ok)
		assert.Equal(t, rep, got)

		back, ok := RepresentationToChar(rep)
		assert.True(t, ok)
		assert.Equal(t, c, back)
	}
}

func TestCharToRepresentationIsCaseInsensitive(t *testing.T) {
	upperRep, ok := CharToRepresentation('K')
	assert.True(t, ok)
	lowerRep, ok := CharToRepresentation('k')
	assert.True(t, ok)
	assert.Equal(t, upperRep, lowerRep)
}

func TestCharToRepresentationUnknownChar(t *testing.T) {
	_, ok := CharToRepresentation('~')
	assert.False(t, ok)
}

func TestRepresentationIsValid(t *testing.T) {
	assert.True(t, RepresentationIsValid(".-"))
	assert.False(t, RepresentationIsValid(""))
	assert.False(t, RepresentationIsValid("x"))
	assert.False(t, RepresentationIsValid(".........."))
}

func TestStringIsValid(t *testing.T) {
	assert.True(t, StringIsValid("PARIS"))
	assert.True(t, StringIsValid("PARIS TEST"))
	assert.False(t, StringIsValid("PARIS~"))
}

func TestProceduralExpansion(t *testing.T) {
	expansion, usuallyExpanded, ok := ProceduralExpansion("sk")
	assert.True(t, ok)
	assert.Equal(t, "SK", expansion)
	assert.True(t, usuallyExpanded)

	_, _, ok = ProceduralExpansion("ZZ")
	assert.False(t, ok)
}

func TestPhonetic(t *testing.T) {
	word, ok := Phonetic('a')
	assert.True(t, ok)
	assert.Equal(t, "Alfa", word)

	_, ok = Phonetic('.')
	assert.False(t, ok)
}
