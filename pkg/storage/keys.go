package storage

// Key schema for the order book database. One record per asset:
//
//	book:<assetID> → JSON array of open orders
const prefixBook = "book:"

func bookKey(assetID string) []byte {
	return []byte(prefixBook + assetID)
}

func bookPrefix() []byte {
	return []byte(prefixBook)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
