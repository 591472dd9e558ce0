package diag

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t     time.Duration
	cycle uint64
}

func (c *fakeClock) Time() time.Duration { return c.t }
func (c *fakeClock) CycleID() uint64     { return c.cycle }

func TestLog_PrefixesEveryLine(t *testing.T) {
	buf := &bytes.Buffer{}
	clock := &fakeClock{t: 30 * time.Millisecond, cycle: 3}
	s := New(buf, clock)

	st := s.Log()
	st.Printf("first\nsecond\n")
	require.NoError(t, st.Close())

	assert.Equal(t, "t=  30, c=   3: first\nt=  30, c=   3: second\n", buf.String())
}

func TestLog_PrefixOnlyAtLineStart(t *testing.T) {
	buf := &bytes.Buffer{}
	s := New(buf, &fakeClock{cycle: 1})

	st := s.Log()
	st.Printf("part one, ")
	st.Printf("part two\n")

	assert.Equal(t, "t=   0, c=   1: part one, part two\n", buf.String())
}

func TestLog_PrefixUsesClockAtLineStart(t *testing.T) {
	buf := &bytes.Buffer{}
	clock := &fakeClock{}
	s := New(buf, clock)

	st := s.Log()
	st.Printf("a\n")
	clock.cycle = 7
	clock.t = 70 * time.Millisecond
	st.Printf("b\n")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "t=   0, c=   0: a", lines[0])
	assert.Equal(t, "t=  70, c=   7: b", lines[1])
}

func TestError_BorderedAndPrefixed(t *testing.T) {
	buf := &bytes.Buffer{}
	s := New(buf, &fakeClock{cycle: 2}, WithWidth(20))

	s.Errorf("boom")

	border := strings.Repeat("!", 20)
	want := border + "\nError:\n" + border + "\n" +
		"t=   0, c=   2: *** boom\n" +
		border + "\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 1, s.ErrorCount())
}

func TestError_AbortsOnCloseWhenConfigured(t *testing.T) {
	buf := &bytes.Buffer{}
	aborted := 0
	s := New(buf, &fakeClock{}, WithAbortOnError(true), WithAbortFunc(func() { aborted++ }))

	st := s.Error()
	st.Printf("first error")
	assert.Equal(t, 0, aborted, "abort happens only after the diagnostic is complete")

	require.NoError(t, st.Close())
	assert.Equal(t, 1, aborted)

	require.NoError(t, st.Close())
	assert.Equal(t, 1, aborted, "second close is a no-op")
}

func TestError_NoAbortByDefault(t *testing.T) {
	aborted := false
	s := New(&bytes.Buffer{}, &fakeClock{}, WithAbortFunc(func() { aborted = true }))
	s.Errorf("not fatal")
	assert.False(t, aborted)
	assert.False(t, s.AbortOnError())
}

func TestBanner(t *testing.T) {
	buf := &bytes.Buffer{}
	s := New(buf, &fakeClock{}, WithWidth(16))
	s.Banner("hello")

	border := strings.Repeat("#", 16)
	assert.Equal(t, border+"\nt=   0, c=   0: hello\n"+border+"\n", buf.String())
}

func TestWithWidth_IgnoresTinyValues(t *testing.T) {
	buf := &bytes.Buffer{}
	s := New(buf, &fakeClock{}, WithWidth(3))
	s.Banner()
	assert.Equal(t, strings.Repeat("#", DefaultWidth)+"\n"+strings.Repeat("#", DefaultWidth)+"\n", buf.String())
}

func TestNilWriterDiscards(t *testing.T) {
	s := New(nil, nil)
	assert.NotPanics(t, func() {
		s.Logf("x\n")
		s.Errorf("y")
	})
}
