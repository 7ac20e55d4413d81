package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gewnthar/projectscraper/utils"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Acme Tower", utils.CleanText("  Acme\n\t  Tower  "))
	assert.Equal(t, "", utils.CleanText(" \n "))
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"blockchain":      "Blockchain",
		"DATA science":    "Data Science",
		"mobile-game dev": "Mobile-Game Dev",
		"3d printing":     "3D Printing",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, utils.TitleCase(in), in)
	}
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "966512345678", utils.DigitsOnly("+966 (51) 234-5678"))
	assert.Equal(t, "", utils.DigitsOnly("n/a"))
}
