/*
Package switchboard builds voice-agent conversation flows from business templates and deploys them to the Retell platform.

A flow is a directed graph of typed nodes (dialogue, extraction, function call, SMS, transfer, terminal) joined by conditional edges. Templates are data: a descriptor plus a business configuration yields a flow deterministically, and the same inputs always encode to the same bytes.

# Pipeline

	config (YAML/JSON) -> flowbuilder -> validator -> retell.Encode -> platform

Every step is usable on its own. The Deployer ties them together and records each created agent in one or more ledgers.

# Usage

	package main

	import (
		"context"
		"log"
		"os"

		"github.com/aretw0/switchboard"
		"github.com/aretw0/switchboard/pkg/config"
		"github.com/aretw0/switchboard/pkg/retell"
	)

	func main() {
		cfg, err := config.Load("client.yaml")
		if err != nil {
			log.Fatal(err)
		}

		client := retell.NewClient(os.Getenv("RETELL_API_KEY"))
		d := switchboard.NewDeployer(client)

		dep, err := d.Deploy(context.Background(), "receptionist", cfg)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("agent %s is live", dep.AgentID)
	}

# Validation

Flows that break a structural rule (dangling edges, unreachable nodes, duplicate ids, terminals with edges) never reach the platform. Softer findings, such as a transfer number that is not E.164, are reported as warnings. See package validator for the full rule list.
*/
package switchboard
