package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordID(t *testing.T) {
	tcases := []struct {
		in   interface{}
		want uint
		ok   bool
	}{
		{float64(12), 12, true},
		{uint(3), 3, true},
		{7, 7, true},
		{-1, 0, false},
		{float64(-4), 0, false},
		{"12", 0, false},
		{nil, 0, false},
	}

	for _, tc := range tcases {
		got, ok := recordID(tc.in)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}

func TestIndexed(t *testing.T) {
	assert.True(t, Indexed("events"))
	assert.True(t, Indexed("announcements"))
	assert.True(t, Indexed("threads"))
	assert.False(t, Indexed("profiles"))
	assert.False(t, Indexed("team_members"))
}

func TestDocID(t *testing.T) {
	assert.Equal(t, "events-4", docID("events", 4))
}
