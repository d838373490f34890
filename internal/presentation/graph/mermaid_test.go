package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/switchboard/internal/presentation/graph"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/dsl"
)

func sampleFlow(t *testing.T) *domain.Flow {
	t.Helper()
	b := dsl.New("sample")
	b.Add("greeting").Name("Node 1: Greeting").Say("Hello").Branch(`caller says "book"`, "ask").Go("bye")
	b.Add("ask").Extract("caller_name", "Name").Go("book")
	b.Add("book").Call("create-booking").OnSuccess("text").OnFailure("transfer")
	b.Add("text").SMS("Booked!").OnSuccess("bye").OnFailure("bye")
	b.Add("transfer").Transfer("+15551234567", domain.TransferWarm).OnFailure("bye")
	b.Add("bye").Text("Goodbye").Terminal()
	f, _, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return f
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(sampleFlow(t), nil)

	tests := []struct {
		name string
		want string
	}{
		{"Start Node Shape", `greeting(("Node 1: Greeting <br/> greeting"))`},
		{"Extraction Shape", `ask[/"ask"/]`},
		{"Function Shape", `book[["book"]]`},
		{"SMS Shape", `text>"text"]`},
		{"Transfer Shape", `transfer{{"transfer"}}`},
		{"Terminal Shape", `bye(["bye"])`},
		{"Prompt Escaping", `greeting -- "caller says 'book'" --> ask`},
		{"Always Edge", `greeting --> bye`},
		{"Success Edge", `book -- success --> text`},
		{"Failure Edge", `book -. failure .-> transfer`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(got, tt.want) {
				t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, tt.want)
			}
		})
	}
	if strings.Contains(got, "classDef") {
		t.Error("no overlay styles without an overlay")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	got := graph.GenerateMermaid(sampleFlow(t), &graph.Overlay{
		ErrorNodes:   []string{"book", "book"},
		WarningNodes: []string{"book", "ask"},
	})
	if strings.Count(got, "class book error;") != 1 {
		t.Errorf("want a single error class on book:\n%s", got)
	}
	if strings.Contains(got, "class book warning;") {
		t.Error("errors take precedence over warnings")
	}
	if !strings.Contains(got, "class ask warning;") {
		t.Error("want ask styled as warning")
	}
}
