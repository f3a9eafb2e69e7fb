package kvfs

import (
	"math"

	"github.com/hviana/kvfs/kv"
)

// rootKey is the fixed first component of every key this package writes,
// naming the substrate's flat namespace as belonging to this store (spec
// §3's three key families all share it).
const rootKey = "deno_kv_fs"

func filesKey(path []string) kv.Key {
	k := kv.Key{}.String(rootKey).String("files")
	for _, s := range path {
		k = k.String(s)
	}
	return k
}

func filesPrefixKey(path []string) kv.Key {
	return filesKey(path)
}

func chunkKey(uri string, index int64) kv.Key {
	return kv.Key{}.String(rootKey).String("chunks").String(uri).Int(index)
}

func chunksPrefixKey(uri string) kv.Key {
	return kv.Key{}.String(rootKey).String("chunks").String(uri)
}

func chunksFromKey(uri string, fromIndex int64) (start, end kv.Key) {
	start = kv.Key{}.String(rootKey).String("chunks").String(uri).Int(fromIndex)
	end = kv.Key{}.String(rootKey).String("chunks").String(uri).Int(math.MaxInt64)
	return start, end
}

func unresolvedKey(uri string) kv.Key {
	return kv.Key{}.String(rootKey).String("unresolved").String(uri)
}

func unresolvedPrefixKey() kv.Key {
	return kv.Key{}.String(rootKey).String("unresolved")
}
