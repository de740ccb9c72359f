package message

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	withContent := Message{Content: sql.NullString{String: "hello", Valid: true}}
	assert.Equal(t, "hello", withContent.Text())

	attachmentOnly := Message{}
	assert.Equal(t, "", attachmentOnly.Text())
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusSent, StatusDelivered, true},
		{StatusSent, StatusSeen, true},
		{StatusDelivered, StatusSeen, true},
		{StatusDelivered, StatusSent, false},
		{StatusSeen, StatusDelivered, false},
		{StatusSeen, StatusSent, false},
		{StatusSent, StatusSent, false},
		{"UNKNOWN", StatusSeen, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
