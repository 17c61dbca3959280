package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModerate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "clean feedback passes", text: "The explanation about recursion was really helpful", want: true},
		{name: "empty string passes", text: "", want: true},
		{name: "whitespace only passes", text: "   ", want: true},
		{name: "click here spam blocked", text: "CLICK HERE FOR FREE MONEY!!!", want: false},
		{name: "buy now spam blocked", text: "Buy now and get 50% off our premium course", want: false},
		{name: "limited offer spam blocked", text: "limited time offer, act fast", want: false},
		{name: "abusive message blocked", text: "shut up you stupid bot", want: false},
		{name: "link farm blocked", text: "see https://a.example http://b.example https://c.example", want: false},
		{name: "single link passes", text: "the docs at https://example.com/guide were helpful", want: true},
		{name: "sustained shouting with exclamations blocked", text: "THIS IS THE WORST THING EVER MADE!!!", want: false},
		{name: "short excited message passes", text: "AMAZING!!!", want: true},
		{name: "question passes", text: "What is the capital of France?", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Moderate(tt.text))
		})
	}
}
