package subject

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeFallbackProfileKeepsPersona(t *testing.T) {
	prompt := Compose(Profile{})
	assert.Equal(t, basePersona, prompt)
}

func TestComposeBuiltinProfile(t *testing.T) {
	p := Profile{
		ID:            "math",
		Name:          "Math",
		Description:   "step-by-step mathematics",
		TeachingStyle: "show intermediate steps",
	}
	prompt := Compose(p)

	assert.True(t, strings.HasPrefix(prompt, basePersona))
	assert.Contains(t, prompt, "Subject focus: Math.")
	assert.Contains(t, prompt, "Description: step-by-step mathematics")
	assert.Contains(t, prompt, "Teaching style: show intermediate steps")
	assert.NotContains(t, prompt, defaultEncouragement)
}

func TestComposeUsesIDWhenNameMissing(t *testing.T) {
	prompt := Compose(Profile{ID: "astronomy"})
	assert.Contains(t, prompt, "Subject focus: astronomy.")
}

func TestComposeOmitsEmptySections(t *testing.T) {
	prompt := Compose(Profile{ID: "astronomy"})
	assert.NotContains(t, prompt, "Description:")
	assert.NotContains(t, prompt, "Teaching style:")
}

func TestComposeCustomWithoutTeachingStyle(t *testing.T) {
	p := FromDescriptor("Linear Algebra", "matrices", "")
	prompt := Compose(p)

	assert.Contains(t, prompt, "Linear Algebra")
	assert.Contains(t, prompt, "matrices")
	assert.Contains(t, prompt, defaultEncouragement)
	assert.NotContains(t, prompt, "Teaching style:")
}

func TestComposeCustomWithTeachingStyle(t *testing.T) {
	p := FromDescriptor("Linear Algebra", "matrices", "draw pictures")
	prompt := Compose(p)

	assert.Contains(t, prompt, "Teaching style: draw pictures")
	assert.NotContains(t, prompt, defaultEncouragement)
}

func TestComposeIsDeterministic(t *testing.T) {
	p := Profile{ID: "history", Name: "History", Description: "d", TeachingStyle: "t"}
	assert.Equal(t, Compose(p), Compose(p))
}
