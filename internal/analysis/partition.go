package analysis

// Partition splits a product list into batches of at most size records,
// preserving input order. The batches concatenate back to the input exactly;
// an empty input yields no batches.
func Partition(products []ProductRecord, size int) [][]ProductRecord {
	if size <= 0 || len(products) == 0 {
		return nil
	}
	batches := make([][]ProductRecord, 0, (len(products)+size-1)/size)
	for start := 0; start < len(products); start += size {
		end := start + size
		if end > len(products) {
			end = len(products)
		}
		batches = append(batches, products[start:end:end])
	}
	return batches
}
