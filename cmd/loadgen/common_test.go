package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBBox(t *testing.T) {
	b, err := parseBBox("40.70, -74.02, 40.78, -73.93")
	require.NoError(t, err)
	assert.Equal(t, -74.02, b.Min[0])
	assert.Equal(t, 40.70, b.Min[1])
	assert.Equal(t, -73.93, b.Max[0])
	assert.Equal(t, 40.78, b.Max[1])

	for _, bad := range []string{"1,2,3", "a,b,c,d", "41,0,40,1"} {
		_, err := parseBBox(bad)
		assert.Error(t, err, bad)
	}
}

func TestRandomPointStaysInBox(t *testing.T) {
	b, err := parseBBox("10,20,10.5,20.5")
	require.NoError(t, err)
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		p := randomPoint(rnd, b)
		assert.True(t, p.Lat >= 10 && p.Lat <= 10.5)
		assert.True(t, p.Lng >= 20 && p.Lng <= 20.5)
	}
}

func TestParseClients(t *testing.T) {
	got, err := parseClients("1, 2,8")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 8}, got)

	_, err = parseClients("4,0")
	assert.Error(t, err)
}

func TestComputePercentiles(t *testing.T) {
	var l []time.Duration
	for i := 100; i >= 1; i-- {
		l = append(l, time.Duration(i)*time.Millisecond)
	}
	p50, p95, p99 := computePercentiles(l)
	assert.Equal(t, 51.0, p50)
	assert.Equal(t, 96.0, p95)
	assert.Equal(t, 100.0, p99)
	assert.InDelta(t, 50.5, computeAvg(l), 1e-9)

	// input order is untouched
	assert.Equal(t, 100*time.Millisecond, l[0])

	p50, _, _ = computePercentiles(nil)
	assert.Zero(t, p50)
}
