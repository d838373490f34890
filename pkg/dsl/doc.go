/*
Package dsl provides a Go DSL for programmatically constructing conversation flows.

It lets code and templates define flows with a fluent builder instead of
hand-assembling domain.Node payloads. Variables declared with Extract are
registered in a catalog as they are added, so a duplicate name fails at the
point of introduction.

Example usage:

	b := dsl.New("intake").Start("greet")
	b.Dynamic("company", "Business name")

	b.Add("greet").
		Say("Greet the caller on behalf of {{company}}.").
		Branch("Caller wants to book", "collect").
		Branch("Caller is done", "end")

	b.Add("collect").
		Extract("caller_name", "The caller's name").
		Extract("caller_phone", "The caller's phone number").
		Go("end")

	b.Add("end").
		Static("Thanks {{caller_name}}, goodbye!").
		Terminal()

	flow, cat, err := b.Build()
*/
package dsl
