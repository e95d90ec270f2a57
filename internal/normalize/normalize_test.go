package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-matcher/internal/matcherr"
)

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "empty", input: "", expect: ""},
		{name: "lowercases and collapses", input: "  Senior   GO\tDeveloper \n", expect: "senior go developer"},
		{name: "drops emails", input: "Contact john.doe@example.com today", expect: "contact today"},
		{name: "drops links", input: "see https://github.com/jdoe/repo and www.example.org/x now", expect: "see and now"},
		{name: "drops digits and punctuation", input: "C++ 10+ years, Node.js!", expect: "c years nodejs"},
		{name: "drops non-ascii letters", input: "Café résumé", expect: "caf rsum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Text(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}

func TestTextIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"Experienced Python developer, 5 years @ ACME (https://acme.io)",
		"mail me: a.b@c.de or visit www.site.com",
		"   •  Kubernetes • Terraform  ",
		"UPPER lower MiXeD 123",
	}

	for _, input := range inputs {
		once, err := Text(input)
		require.NoError(t, err)
		twice, err := Text(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "input %q", input)
	}
}

func TestTextRejectsInvalidEncoding(t *testing.T) {
	_, err := Text("valid prefix \xff\xfe")
	require.Error(t, err)
	assert.ErrorIs(t, err, matcherr.ErrNormalization)
}

func TestTerms(t *testing.T) {
	got := Terms([]string{" Python ", "go", "React", "python", "", "AWS", "ai"})
	assert.Equal(t, []string{"python", "react", "aws"}, got)
	assert.Empty(t, Terms(nil))
}
