package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratorDefaults(t *testing.T) {
	assert := assert.New(t)

	var g Generator
	for i := 0; i < 1000; i++ {
		c := g.New()
		assert.GreaterOrEqual(c.A, 1)
		assert.LessOrEqual(c.A, 10)
		assert.GreaterOrEqual(c.B, 1)
		assert.LessOrEqual(c.B, 10)
		assert.Equal(c.A+c.B, c.Answer)
		assert.GreaterOrEqual(c.Answer, 2)
		assert.LessOrEqual(c.Answer, 20)
	}
}

func TestGeneratorBounds(t *testing.T) {
	assert := assert.New(t)

	g := Generator{Min: 5, Max: 5}
	c := g.New()
	assert.Equal(Challenge{A: 5, B: 5, Answer: 10}, c)

	// reversed bounds are swapped, not rejected
	g = Generator{Min: 4, Max: 2}
	for i := 0; i < 100; i++ {
		c := g.New()
		assert.GreaterOrEqual(c.A, 2)
		assert.LessOrEqual(c.A, 4)
	}
}

func TestQuestion(t *testing.T) {
	assert := assert.New(t)

	c := Challenge{A: 3, B: 4, Answer: 7}
	assert.Equal("3 + 4 = ?", c.Question())
}
