package kvfs

import "encoding/json"

// FileFlag marks a condition on a stored file. Currently only Incomplete
// exists (spec §3).
type FileFlag string

const FlagIncomplete FileFlag = "incomplete"

// FileRecord is the durable value stored at ("deno_kv_fs", "files", ...path).
type FileRecord struct {
	Path         []string
	Size         int64
	Flags        []FileFlag
	Metadata     map[string]any
	URIComponent string
}

func decodeFileRecord(raw []byte) (FileRecord, error) {
	var rec FileRecord
	err := json.Unmarshal(raw, &rec)
	return rec, err
}

func hasFlag(flags []FileFlag, f FileFlag) bool {
	for _, v := range flags {
		if v == f {
			return true
		}
	}
	return false
}
