// Package retell encodes flows into the platform's conversation-flow documents
// and talks to its REST API.
package retell
