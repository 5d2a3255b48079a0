package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"meetdistill/internal/types/meeting"
)

func TestDeadlineFixer(t *testing.T) {
	f := NewDeadlineFixer(Lexicon{})
	facts := testFacts()

	cases := []struct {
		name string
		in   *string
		want *string
	}{
		{"Should keep nil", nil, nil},
		{"Should keep a plain time phrase", meeting.StringPtr(" Friday morning "), meeting.StringPtr("Friday morning")},
		{"Should clear absence markers", meeting.StringPtr("Not specified"), nil},
		{"Should clear TBD", meeting.StringPtr("tbd"), nil},
		{"Should narrow a task to its time phrase", meeting.StringPtr("Send summary by Friday morning"), meeting.StringPtr("Friday morning")},
		{"Should clear a task whose time phrase no fact has", meeting.StringPtr("Send summary by Monday"), nil},
		{"Should clear a bare task", meeting.StringPtr("Run the API test"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.Fix(tc.in, facts))
		})
	}
}
