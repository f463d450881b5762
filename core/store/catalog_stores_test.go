package store

import (
	"context"
	"testing"
)

func TestVendorsCodeNormalizedAndUnique(t *testing.T) {
	db := mustTestDB(t)
	s := NewVendorsStore(db)
	mustCreateVendor(t, db, "Acme Telematics", "acme")

	v, err := s.FindByCode(context.Background(), "ACME")
	if err != nil || v == nil {
		t.Fatalf("find by code: %v", err)
	}
	if v.Code != "ACME" {
		t.Fatalf("code must be stored upper-case, got %q", v.Code)
	}

	_, err = s.Create(context.Background(), &Vendor{Name: "Other", Code: "acme", Active: true})
	if err == nil || !IsUniqueViolation(err) {
		t.Fatalf("duplicate code: expected unique violation, got %v", err)
	}
	_, err = s.Create(context.Background(), &Vendor{Name: "Acme Telematics", Code: "ACM2", Active: true})
	if err == nil || !IsUniqueViolation(err) {
		t.Fatalf("duplicate name: expected unique violation, got %v", err)
	}
}

func TestVendorsListFilters(t *testing.T) {
	db := mustTestDB(t)
	s := NewVendorsStore(db)
	mustCreateVendor(t, db, "Acme Telematics", "ACME")
	id := mustCreateVendor(t, db, "Borealis", "BOR")

	v, _ := s.Get(context.Background(), id)
	v.Active = false
	if err := s.Update(context.Background(), v); err != nil {
		t.Fatalf("update: %v", err)
	}

	active := true
	items, total, err := s.List(context.Background(), VendorFilter{Active: &active})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if total != 1 || items[0].Name != "Acme Telematics" {
		t.Fatalf("active filter: total=%d", total)
	}

	items, total, err = s.List(context.Background(), VendorFilter{Query: "bor"})
	if err != nil {
		t.Fatalf("list query: %v", err)
	}
	if total != 1 || items[0].Code != "BOR" {
		t.Fatalf("query filter: total=%d", total)
	}
}

func TestProductsJoinVendorName(t *testing.T) {
	db := mustTestDB(t)
	vid := mustCreateVendor(t, db, "Acme Telematics", "ACME")
	pid := mustCreateProduct(t, db, vid, "Tracker", "FMB-120")

	s := NewProductsStore(db)
	p, err := s.Get(context.Background(), pid)
	if err != nil || p == nil {
		t.Fatalf("get: %v", err)
	}
	if p.VendorName != "Acme Telematics" {
		t.Fatalf("vendor name not joined: %q", p.VendorName)
	}

	_, err = s.Create(context.Background(), &Product{VendorID: vid, Name: "Tracker v2", Model: "FMB-120", Active: true})
	if err == nil || !IsUniqueViolation(err) {
		t.Fatalf("duplicate model per vendor: expected unique violation, got %v", err)
	}

	other := mustCreateVendor(t, db, "Borealis", "BOR")
	if _, err := s.Create(context.Background(), &Product{VendorID: other, Name: "Tracker", Model: "FMB-120", Active: true}); err != nil {
		t.Fatalf("same model under another vendor must be allowed: %v", err)
	}
}

func TestProductsDeleteCascadesFromVendor(t *testing.T) {
	db := mustTestDB(t)
	vid := mustCreateVendor(t, db, "Acme Telematics", "ACME")
	pid := mustCreateProduct(t, db, vid, "Tracker", "FMB-120")

	if err := NewVendorsStore(db).Delete(context.Background(), vid); err != nil {
		t.Fatalf("delete vendor: %v", err)
	}
	p, err := NewProductsStore(db).Get(context.Background(), pid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p != nil {
		t.Fatalf("product must be removed with its vendor")
	}
}

func TestIOUniversalUniqueIOID(t *testing.T) {
	db := mustTestDB(t)
	s := NewIOUniversalStore(db)
	mustCreateIO(t, db, 239, "Ignition")

	_, err := s.Create(context.Background(), &IOUniversal{IOID: 239, Name: "Other"})
	if err == nil || !IsUniqueViolation(err) {
		t.Fatalf("duplicate io_id: expected unique violation, got %v", err)
	}

	io, err := s.FindByIOID(context.Background(), 239)
	if err != nil || io == nil {
		t.Fatalf("find by io_id: %v", err)
	}
	if io.Name != "Ignition" {
		t.Fatalf("wrong record: %q", io.Name)
	}
}

func TestIOUniversalCategories(t *testing.T) {
	db := mustTestDB(t)
	s := NewIOUniversalStore(db)
	if _, err := s.Create(context.Background(), &IOUniversal{IOID: 1, Name: "a", Category: "engine"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(context.Background(), &IOUniversal{IOID: 2, Name: "b", Category: "engine"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(context.Background(), &IOUniversal{IOID: 3, Name: "c", Category: "battery"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	cats, err := s.Categories(context.Background())
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "battery" || cats[1] != "engine" {
		t.Fatalf("expected sorted distinct categories, got %v", cats)
	}
}
