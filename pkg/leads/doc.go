// Package leads turns calls and CSV exports into CRM leads.
//
// FromCall builds a lead from a finished call event. Upsert merges it into a
// ports.LeadStore, matching existing leads on the last ten phone digits.
// Import reads a lead export and saves it in batches.
package leads
