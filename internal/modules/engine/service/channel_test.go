package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turtle_bot/internal/models"
)

func TestChanState_NotReadyUntilFullWindow(t *testing.T) {
	c := newChanState(3)
	c.Push(51, 50)
	c.Push(52, 49)
	_, _, ok := c.Levels()
	assert.False(t, ok)

	c.Push(53, 48)
	hh, ll, ok := c.Levels()
	require.True(t, ok)
	assert.Equal(t, 53.0, hh)
	assert.Equal(t, 48.0, ll)
}

func TestChanState_WindowSlides(t *testing.T) {
	c := newChanState(2)
	c.Push(55, 40) // выпадет
	c.Push(51, 50)
	c.Push(52, 49)
	hh, ll, ok := c.Levels()
	require.True(t, ok)
	assert.Equal(t, 52.0, hh)
	assert.Equal(t, 49.0, ll)
}

func TestSystemState_EntryIsStrict(t *testing.T) {
	s := newSystemState(models.System1, 2, 2)
	s.Push(51, 50)
	s.Push(51, 50)

	// close == hh не пробой
	_, ok := s.EntrySignal(51)
	assert.False(t, ok)
	// close == ll не пробой
	_, ok = s.EntrySignal(50)
	assert.False(t, ok)

	dir, ok := s.EntrySignal(51.01)
	require.True(t, ok)
	assert.Equal(t, models.DirLong, dir)

	dir, ok = s.EntrySignal(49.99)
	require.True(t, ok)
	assert.Equal(t, models.DirShort, dir)
}

func TestSystemState_ExitSignalAgainstPosition(t *testing.T) {
	s := newSystemState(models.System1, 2, 2)
	s.Push(51, 50)
	s.Push(51, 50)

	assert.True(t, s.ExitSignal(49.9, models.DirLong))
	assert.False(t, s.ExitSignal(50.0, models.DirLong)) // строго
	assert.True(t, s.ExitSignal(51.1, models.DirShort))
	assert.False(t, s.ExitSignal(51.0, models.DirShort))
}

func TestSystemState_SkipFilterOnlyFastSystem(t *testing.T) {
	s1 := newSystemState(models.System1, 2, 2)
	s2 := newSystemState(models.System2, 2, 2)

	assert.False(t, s1.Suppressed(models.DirLong))

	s1.RecordResult(models.DirLong, true)
	s2.RecordResult(models.DirLong, true)

	assert.True(t, s1.Suppressed(models.DirLong))
	assert.False(t, s1.Suppressed(models.DirShort), "фильтр по направлению, шорт не задет")
	assert.False(t, s2.Suppressed(models.DirLong), "медленную систему фильтр не трогает")

	// убыток снимает подавление
	s1.RecordResult(models.DirLong, false)
	assert.False(t, s1.Suppressed(models.DirLong))
}
