package memory_test

import (
	"testing"

	"github.com/aretw0/switchboard/internal/adapters/memory"
	"github.com/aretw0/switchboard/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunLeadStoreContract(t, memory.New())
}

func TestMemoryLedger_Contract(t *testing.T) {
	ports.RunDeploymentLedgerContract(t, memory.NewLedger())
}

func TestMemoryLocker_Contract(t *testing.T) {
	ports.RunLockerContract(t, memory.NewLocker())
}
