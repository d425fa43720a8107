package gate_test

import (
	"testing"

	"github.com/diewo77/go-church/internal/gate"
)

func TestTable_HasPermission(t *testing.T) {
	table := gate.NewTable("events:view", "forum:*")

	if !table.Allows(gate.ModuleEvents, gate.ActionView) {
		t.Error("expected events:view to be allowed")
	}
	if table.Allows(gate.ModuleEvents, gate.ActionDelete) {
		t.Error("expected events:delete to be denied")
	}
	if !table.Allows(gate.ModuleForum, gate.ActionDelete) {
		t.Error("expected forum:* to allow forum:delete")
	}
}

func TestTable_NilDeniesEverything(t *testing.T) {
	var table *gate.Table
	for _, mod := range gate.Modules {
		for _, act := range gate.Actions {
			if table.Allows(mod, act) {
				t.Fatalf("nil table allowed %s:%s", mod, act)
			}
		}
	}
	if table.Permissions() != nil {
		t.Error("expected nil permissions for nil table")
	}
}

func TestTable_Permissions_Sorted(t *testing.T) {
	table := gate.NewTable("forum:view", "events:view", "dashboard:view")
	perms := table.Permissions()
	want := []gate.Permission{"dashboard:view", "events:view", "forum:view"}
	if len(perms) != len(want) {
		t.Fatalf("expected %d permissions, got %d", len(want), len(perms))
	}
	for i := range want {
		if perms[i] != want[i] {
			t.Errorf("perms[%d] = %s, want %s", i, perms[i], want[i])
		}
	}
}

func TestTable_Matrix(t *testing.T) {
	table := gate.NewTable("members:manage")
	m := table.Matrix()
	if len(m) != len(gate.Modules) {
		t.Fatalf("expected %d rows, got %d", len(gate.Modules), len(m))
	}
	for _, act := range gate.Actions {
		if !m[gate.ModuleMembers][act] {
			t.Errorf("members:%s should be allowed via manage", act)
		}
		if m[gate.ModuleFinance][act] {
			t.Errorf("finance:%s should be denied", act)
		}
	}
}
