package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/pkg/domain"
)

func edge(from, to string) domain.Edge {
	return domain.Edge{ID: from + "_to_" + to, Source: from, Destination: to, Predicate: domain.When("next")}
}

// intakeFlow: greet -> (collect | skip) ; collect -> confirm ; skip -> confirm ; confirm -> end
func intakeFlow() *domain.Flow {
	f := &domain.Flow{
		StartNodeID:      "greet",
		DynamicVariables: []domain.VariableSpec{{Name: "company", Type: domain.VariableString}},
	}
	f.AddNode(&domain.Node{ID: "greet", Payload: domain.DialoguePayload{Instruction: domain.Prompt("Hi from {{company}}")},
		Edges: []domain.Edge{edge("greet", "collect"), edge("greet", "skip")}})
	f.AddNode(&domain.Node{ID: "collect", Payload: domain.ExtractionPayload{Variables: []domain.VariableSpec{
		{Name: "caller_name", Type: domain.VariableString},
	}}, Edges: []domain.Edge{edge("collect", "confirm")}})
	f.AddNode(&domain.Node{ID: "skip", Payload: domain.ExtractionPayload{Variables: []domain.VariableSpec{
		{Name: "reason", Type: domain.VariableString},
	}}, Edges: []domain.Edge{edge("skip", "confirm")}})
	f.AddNode(&domain.Node{ID: "confirm", Payload: domain.ExtractionPayload{Variables: []domain.VariableSpec{
		{Name: "phone"},
	}}, Edges: []domain.Edge{edge("confirm", "end")}})
	f.AddNode(&domain.Node{ID: "end", Payload: domain.TerminalPayload{Instruction: domain.Static("Bye")}})
	return f
}

func TestDeclare_Duplicate(t *testing.T) {
	c := New()
	require.NoError(t, c.Declare("caller_name", domain.VariableString, "a"))

	err := c.Declare("caller_name", domain.VariableString, "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateVariable))

	var dup *domain.DuplicateVariableError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "a", dup.FirstNode)
	assert.Equal(t, "b", dup.SecondNode)
	assert.Equal(t, 1, c.Len())
}

func TestDeclare_DefaultsType(t *testing.T) {
	c := New()
	require.NoError(t, c.Declare("x", "", "n"))
	v, ok := c.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, domain.VariableString, v.Type)
	assert.True(t, c.IsDeclared("x"))
	assert.False(t, c.IsDeclared("y"))
}

func TestFromFlow(t *testing.T) {
	c, err := FromFlow(intakeFlow())
	require.NoError(t, err)

	names := make([]string, 0, c.Len())
	for _, v := range c.Variables() {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"company", "caller_name", "reason", "phone"}, names)

	v, _ := c.Lookup("company")
	assert.True(t, v.Dynamic)
	assert.Equal(t, "greet", v.DeclaredAt)
}

func TestFromFlow_DuplicateAgainstDynamic(t *testing.T) {
	f := intakeFlow()
	f.DynamicVariables = append(f.DynamicVariables, domain.VariableSpec{Name: "phone"})

	_, err := FromFlow(f)
	assert.ErrorIs(t, err, domain.ErrDuplicateVariable)
}

func TestAllDeclaredBefore(t *testing.T) {
	c, err := FromFlow(intakeFlow())
	require.NoError(t, err)

	t.Run("start sees dynamic only", func(t *testing.T) {
		assert.Equal(t, []string{"company"}, c.AllDeclaredBefore("greet"))
	})
	t.Run("own extraction excluded", func(t *testing.T) {
		assert.Equal(t, []string{"company"}, c.AllDeclaredBefore("collect"))
		assert.Equal(t, []string{"company", "caller_name"}, c.AllDeclaredAt("collect"))
	})
	t.Run("branch-only variables are not guaranteed after the join", func(t *testing.T) {
		assert.Equal(t, []string{"company"}, c.AllDeclaredBefore("confirm"))
		assert.False(t, c.GuaranteedAt("caller_name", "confirm"))
	})
	t.Run("dominating extraction is guaranteed", func(t *testing.T) {
		assert.Equal(t, []string{"company", "phone"}, c.AllDeclaredBefore("end"))
		assert.True(t, c.GuaranteedAt("phone", "end"))
	})
	t.Run("unknown node", func(t *testing.T) {
		assert.Nil(t, c.AllDeclaredBefore("ghost"))
	})
}

func TestAllDeclaredBefore_Unbound(t *testing.T) {
	c := New()
	require.NoError(t, c.Declare("x", domain.VariableString, "a"))
	assert.Nil(t, c.AllDeclaredBefore("a"))
}
