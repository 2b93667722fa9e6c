package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSeries() []Bar {
	return []Bar{
		{TS: 1000, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{TS: 2000, Open: 10.5, High: 12, Low: 10, Close: 11, Volume: 200},
		{TS: 3000, Open: 11, High: 11.5, Low: 10.5, Close: 11.2, Volume: 150},
	}
}

func TestValidateSeries(t *testing.T) {
	assert.NoError(t, ValidateSeries(validSeries()))
	assert.Error(t, ValidateSeries(nil))

	bad := validSeries()
	bad[1].Close = 0
	assert.Error(t, ValidateSeries(bad))

	bad = validSeries()
	bad[2].High = 1
	assert.Error(t, ValidateSeries(bad))

	bad = validSeries()
	bad[1].Volume = -5
	assert.Error(t, ValidateSeries(bad))

	bad = validSeries()
	bad[2].TS = bad[1].TS
	assert.Error(t, ValidateSeries(bad))
}

func TestSeriesExtractors(t *testing.T) {
	bars := validSeries()
	assert.Equal(t, []float64{10.5, 11, 11.2}, Closes(bars))
	assert.Equal(t, []float64{11, 12, 11.5}, Highs(bars))
	assert.Equal(t, []float64{9, 10, 10.5}, Lows(bars))
	assert.Equal(t, []float64{100, 200, 150}, Volumes(bars))
}

func TestBarTime(t *testing.T) {
	b := Bar{TS: 1700000000000}
	assert.Equal(t, int64(1700000000), b.Time().Unix())
}
