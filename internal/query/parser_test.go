package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBareTermIsNameField(t *testing.T) {
	q, err := Parse("Camel")
	require.NoError(t, err)
	term, ok := q.Root.(*TermNode)
	require.True(t, ok)
	assert.Equal(t, "n", term.Code)
	assert.Equal(t, "camel", term.Value)
	assert.False(t, term.Wildcard)
}

func TestParseImplicitAndByJuxtaposition(t *testing.T) {
	explicit, err := Parse("a AND b")
	require.NoError(t, err)
	implicit, err := Parse("a b")
	require.NoError(t, err)
	assert.IsType(t, &AndNode{}, explicit.Root)
	assert.IsType(t, &AndNode{}, implicit.Root)
}

func TestParseOrLowerPrecedenceThanAnd(t *testing.T) {
	q, err := Parse("a b OR c")
	require.NoError(t, err)
	or, ok := q.Root.(*OrNode)
	require.True(t, ok)
	assert.IsType(t, &AndNode{}, or.Left)
	assert.IsType(t, &TermNode{}, or.Right)
}

func TestParseNot(t *testing.T) {
	q, err := Parse("NOT name:foo")
	require.NoError(t, err)
	not, ok := q.Root.(*NotNode)
	require.True(t, ok)
	assert.IsType(t, &TermNode{}, not.Child)
}

func TestParseParentheses(t *testing.T) {
	q, err := Parse("(a OR b) AND c")
	require.NoError(t, err)
	and, ok := q.Root.(*AndNode)
	require.True(t, ok)
	assert.IsType(t, &OrNode{}, and.Left)
}

func TestParseFullnameField(t *testing.T) {
	q, err := Parse("fullname:bar")
	require.NoError(t, err)
	term := q.Root.(*TermNode)
	assert.Equal(t, "fn", term.Code)
	assert.Equal(t, "bar", term.Value)
}

func TestParseWildcardPrefix(t *testing.T) {
	q, err := Parse("name:foo*")
	require.NoError(t, err)
	term := q.Root.(*TermNode)
	assert.True(t, term.Wildcard)
	assert.Equal(t, "foo", term.Value)
}

func TestParseRejectsInfixWildcard(t *testing.T) {
	_, err := Parse("name:f*o")
	assert.Error(t, err)
}

func TestParseRejectsSuffixWildcard(t *testing.T) {
	_, err := Parse("name:*foo")
	assert.Error(t, err)
}

func TestParseUnknownFieldFails(t *testing.T) {
	_, err := Parse("bogus:foo")
	assert.Error(t, err)
}

func TestParseRejectsEmptyRelocationsValue(t *testing.T) {
	_, err := Parse(`relocations:""`)
	assert.Error(t, err)
}

func TestParseRangeBothBounds(t *testing.T) {
	q, err := Parse("size:100..200")
	require.NoError(t, err)
	r := q.Root.(*RangeNode)
	require.NotNil(t, r.Lo)
	require.NotNil(t, r.Hi)
	assert.EqualValues(t, 100, *r.Lo)
	assert.EqualValues(t, 200, *r.Hi)
}

func TestParseRangeOpenEnds(t *testing.T) {
	q, err := Parse("size:..100")
	require.NoError(t, err)
	r := q.Root.(*RangeNode)
	assert.Nil(t, r.Lo)
	require.NotNil(t, r.Hi)
	assert.EqualValues(t, 100, *r.Hi)

	q2, err := Parse("size:100..")
	require.NoError(t, err)
	r2 := q2.Root.(*RangeNode)
	require.NotNil(t, r2.Lo)
	assert.Nil(t, r2.Hi)
}

func TestParseRangeHex(t *testing.T) {
	q, err := Parse("address:0x1000..0x2000")
	require.NoError(t, err)
	r := q.Root.(*RangeNode)
	assert.EqualValues(t, 0x1000, *r.Lo)
	assert.EqualValues(t, 0x2000, *r.Hi)
}

func TestParseQuotedPathIsExactWhole(t *testing.T) {
	q, err := Parse(`path:"a/b c"`)
	require.NoError(t, err)
	term := q.Root.(*TermNode)
	assert.Equal(t, "pw", term.Code)
	assert.Equal(t, "a/b c", term.Value)
}

func TestParseBarePathTokenizesComponents(t *testing.T) {
	q, err := Parse("path:src/foo.o")
	require.NoError(t, err)
	and, ok := q.Root.(*AndNode)
	require.True(t, ok)
	first := and.Left.(*TermNode)
	second := and.Right.(*TermNode)
	assert.Equal(t, "pt", first.Code)
	assert.Equal(t, "src", first.Value)
	assert.Equal(t, "pt", second.Code)
	assert.Equal(t, "foo.o", second.Value)
}

func TestParseEmptyQueryFails(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
}

func TestParseUnbalancedParenFails(t *testing.T) {
	_, err := Parse("(a AND b")
	assert.Error(t, err)
}
