/*
Package ports defines the driven ports (interfaces) for switchboard.

These interfaces decouple flow deployment and the webhook server from storage,
so leads and deployment records can live in memory, Redis, Postgres or a loam
vault.

# Key Interfaces

  - LeadStore: Persists CRM leads created from calls and imports.
  - DeploymentLedger: Records the agents created on the platform.
  - DistributedLocker: Serializes lead upserts for the same phone number across replicas.
*/
package ports
