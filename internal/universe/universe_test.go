package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPreloadsExpectedUniverses(t *testing.T) {
	m := New()

	kospi := m.Get("kospi_top30")
	assert.Len(t, kospi, 30)

	us := m.Get("us_top30")
	assert.Len(t, us, 30)

	watchlist := m.Get("default_watchlist")
	assert.Len(t, watchlist, 10)
	assert.Equal(t, kospi[:10], watchlist)
}

func TestGetUnknownUniverseReturnsNil(t *testing.T) {
	m := New()
	assert.Nil(t, m.Get("does_not_exist"))
}

func TestGetReturnsACopyNotTheBackingSlice(t *testing.T) {
	m := New()
	codes := m.Get("kospi_top30")
	codes[0] = "MUTATED"
	assert.NotEqual(t, "MUTATED", m.Get("kospi_top30")[0])
}

func TestListIncludesAllPreloadedUniverses(t *testing.T) {
	m := New()
	names := m.List()
	assert.Contains(t, names, "kospi_top30")
	assert.Contains(t, names, "us_top30")
	assert.Contains(t, names, "default_watchlist")
}

func TestAddStockIdempotent(t *testing.T) {
	m := New()
	m.CreateUniverse("watch", []string{"005930"})

	assert.True(t, m.AddStock("watch", "000660"))
	assert.Len(t, m.Get("watch"), 2)

	assert.False(t, m.AddStock("watch", "000660"), "adding an already-present code must be a no-op")
	assert.Len(t, m.Get("watch"), 2)

	assert.False(t, m.AddStock("unknown_universe", "005930"))
}

func TestRemoveStock(t *testing.T) {
	m := New()
	m.CreateUniverse("watch", []string{"005930", "000660"})

	assert.True(t, m.RemoveStock("watch", "005930"))
	assert.Equal(t, []string{"000660"}, m.Get("watch"))

	assert.False(t, m.RemoveStock("watch", "005930"), "removing an absent code must report false")
	assert.False(t, m.RemoveStock("unknown_universe", "005930"))
}

func TestCreateUniverseCopiesInputSlice(t *testing.T) {
	m := New()
	codes := []string{"005930"}
	m.CreateUniverse("watch", codes)
	codes[0] = "MUTATED"
	assert.Equal(t, "005930", m.Get("watch")[0])
}
