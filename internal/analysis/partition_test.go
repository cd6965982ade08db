package analysis

import (
	"fmt"
	"testing"
)

func makeProducts(n int) []ProductRecord {
	products := make([]ProductRecord, n)
	for i := range products {
		products[i] = ProductRecord{
			Manufacturer: "BANNER",
			PartNumber:   fmt.Sprintf("PN-%03d", i),
		}
	}
	return products
}

func TestPartition_SplitsEvenly(t *testing.T) {
	batches := Partition(makeProducts(65), 30)

	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	for i, want := range []int{30, 30, 5} {
		if len(batches[i]) != want {
			t.Errorf("batch %d: expected %d products, got %d", i, want, len(batches[i]))
		}
	}
}

func TestPartition_PreservesOrder(t *testing.T) {
	products := makeProducts(47)
	batches := Partition(products, 10)

	var flat []ProductRecord
	for _, b := range batches {
		flat = append(flat, b...)
	}
	if len(flat) != len(products) {
		t.Fatalf("expected %d products after concat, got %d", len(products), len(flat))
	}
	for i := range flat {
		if flat[i].PartNumber != products[i].PartNumber {
			t.Fatalf("order broken at index %d: got %q want %q", i, flat[i].PartNumber, products[i].PartNumber)
		}
	}
}

func TestPartition_SmallerThanBatch(t *testing.T) {
	batches := Partition(makeProducts(5), 30)
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	if len(batches[0]) != 5 {
		t.Errorf("expected 5 products, got %d", len(batches[0]))
	}
}

func TestPartition_Empty(t *testing.T) {
	if batches := Partition(nil, 30); batches != nil {
		t.Errorf("expected no batches for empty input, got %d", len(batches))
	}
	if batches := Partition(makeProducts(3), 0); batches != nil {
		t.Errorf("expected no batches for zero size, got %d", len(batches))
	}
}
