package store

import (
	"context"
	"testing"
)

func TestIOMappingsCreateDefaultsScale(t *testing.T) {
	db := mustTestDB(t)
	vid := mustCreateVendor(t, db, "Acme Telematics", "ACME")
	pid := mustCreateProduct(t, db, vid, "Tracker", "FMB-120")
	ioID := mustCreateIO(t, db, 66, "External Voltage")

	s := NewIOMappingsStore(db)
	m := &IOMapping{VendorID: vid, ProductID: pid, IOUniversalID: ioID, RegisterAddress: 0x10, RegisterType: "holding"}
	id, err := s.Create(context.Background(), m)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(context.Background(), id)
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if got.Scale != 1 {
		t.Fatalf("zero scale must default to 1, got %v", got.Scale)
	}
	if got.VendorName != "Acme Telematics" || got.ProductName != "Tracker" || got.IOName != "External Voltage" || got.IOID != 66 {
		t.Fatalf("joined names missing: %+v", got)
	}
}

func TestIOMappingsUniquePerProductAndParameter(t *testing.T) {
	db := mustTestDB(t)
	vid := mustCreateVendor(t, db, "Acme Telematics", "ACME")
	pid := mustCreateProduct(t, db, vid, "Tracker", "FMB-120")
	ioID := mustCreateIO(t, db, 239, "Ignition")

	s := NewIOMappingsStore(db)
	if _, err := s.Create(context.Background(), &IOMapping{VendorID: vid, ProductID: pid, IOUniversalID: ioID, RegisterAddress: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := s.Create(context.Background(), &IOMapping{VendorID: vid, ProductID: pid, IOUniversalID: ioID, RegisterAddress: 2})
	if err == nil || !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	pid2 := mustCreateProduct(t, db, vid, "Tracker v2", "FMB-140")
	if _, err := s.Create(context.Background(), &IOMapping{VendorID: vid, ProductID: pid2, IOUniversalID: ioID, RegisterAddress: 2}); err != nil {
		t.Fatalf("same parameter on another product must be allowed: %v", err)
	}
}

func TestIOMappingsTreeGrouping(t *testing.T) {
	db := mustTestDB(t)
	acme := mustCreateVendor(t, db, "Acme Telematics", "ACME")
	bor := mustCreateVendor(t, db, "Borealis", "BOR")
	acmeP1 := mustCreateProduct(t, db, acme, "Tracker", "FMB-120")
	acmeP2 := mustCreateProduct(t, db, acme, "Tracker v2", "FMB-140")
	borP1 := mustCreateProduct(t, db, bor, "Beacon", "BX-1")
	ign := mustCreateIO(t, db, 239, "Ignition")
	volt := mustCreateIO(t, db, 66, "External Voltage")

	s := NewIOMappingsStore(db)
	mk := func(vendorID, productID, ioUniversalID, addr int64) {
		if _, err := s.Create(context.Background(), &IOMapping{VendorID: vendorID, ProductID: productID, IOUniversalID: ioUniversalID, RegisterAddress: addr}); err != nil {
			t.Fatalf("create mapping: %v", err)
		}
	}
	mk(acme, acmeP1, ign, 1)
	mk(acme, acmeP1, volt, 2)
	mk(acme, acmeP2, ign, 3)
	mk(bor, borP1, volt, 4)

	tree, err := s.Tree(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("expected 2 vendor nodes, got %d", len(tree))
	}
	if tree[0].VendorName != "Acme Telematics" || len(tree[0].Products) != 2 {
		t.Fatalf("acme node wrong: %+v", tree[0])
	}
	if len(tree[0].Products[0].Mappings) != 2 {
		t.Fatalf("acme first product should hold 2 mappings, got %d", len(tree[0].Products[0].Mappings))
	}
	if tree[1].VendorName != "Borealis" || len(tree[1].Products) != 1 || len(tree[1].Products[0].Mappings) != 1 {
		t.Fatalf("borealis node wrong: %+v", tree[1])
	}

	// Filters narrow the tree the same way they narrow the list.
	tree, err = s.Tree(context.Background(), acme, acmeP2)
	if err != nil {
		t.Fatalf("tree filtered: %v", err)
	}
	if len(tree) != 1 || len(tree[0].Products) != 1 || tree[0].Products[0].ProductID != acmeP2 {
		t.Fatalf("filtered tree wrong: %+v", tree)
	}
}

func TestIOMappingsListFilterAndPagination(t *testing.T) {
	db := mustTestDB(t)
	vid := mustCreateVendor(t, db, "Acme Telematics", "ACME")
	pid := mustCreateProduct(t, db, vid, "Tracker", "FMB-120")
	s := NewIOMappingsStore(db)
	for i := int64(1); i <= 5; i++ {
		ioID := mustCreateIO(t, db, i, "param")
		if _, err := s.Create(context.Background(), &IOMapping{VendorID: vid, ProductID: pid, IOUniversalID: ioID, RegisterAddress: i}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	items, total, err := s.List(context.Background(), IOMappingFilter{ProductID: pid, Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Fatalf("total=%d", total)
	}
	if len(items) != 2 || items[0].RegisterAddress != 3 {
		t.Fatalf("page 2: %+v", items)
	}
}
