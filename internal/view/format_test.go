package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatterAmount(t *testing.T) {
	en := NewFormatter("en")
	assert.Equal(t, "1,234,567.50", en.Amount(1234567.5))
	assert.Equal(t, "0.00", en.Amount(0))

	de := NewFormatter("de")
	assert.Equal(t, "1.234.567,50", de.Amount(1234567.5))
}

func TestFormatterQuantity(t *testing.T) {
	en := NewFormatter("en")
	assert.Equal(t, "12", en.Quantity(12))
	assert.Equal(t, "12.5", en.Quantity(12.5))
}

func TestFormatterPercent(t *testing.T) {
	en := NewFormatter("en")
	assert.Equal(t, "7.5%", en.Percent(7.5))
	assert.Equal(t, "10%", en.Percent(10))
}

func TestFormatterBadLocaleFallsBack(t *testing.T) {
	f := NewFormatter("not-a-locale!!")
	assert.Equal(t, "1,000.00", f.Amount(1000))
}
