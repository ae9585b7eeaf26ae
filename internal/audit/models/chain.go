package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// ChainSeed is the well-known anchor the first entry chains against.
const ChainSeed = "healthgate-audit-chain-v1"

// hashEnvelope is the canonical hashed form of an entry: a fixed field order
// via struct tags, RFC 3339 nanosecond timestamps, and map keys sorted by
// encoding/json. IntegrityHash itself is excluded.
type hashEnvelope struct {
	ID          string         `json:"id"`
	Seq         int64          `json:"seq"`
	Timestamp   string         `json:"timestamp"`
	Action      Action         `json:"action"`
	ActorID     string         `json:"actor_id"`
	SourceIP    string         `json:"source_ip"`
	UserAgent   string         `json:"user_agent"`
	RequestPath string         `json:"request_path"`
	Method      string         `json:"method"`
	Details     map[string]any `json:"details"`
}

// ComputeHash derives the integrity hash for entry chained against prevHash.
// The same entry and predecessor always produce the same hex digest.
func ComputeHash(prevHash string, entry *Entry) string {
	envelope := hashEnvelope{
		ID:          entry.ID,
		Seq:         entry.Seq,
		Timestamp:   entry.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:      entry.Action,
		ActorID:     entry.ActorID,
		SourceIP:    entry.SourceIP,
		UserAgent:   entry.UserAgent,
		RequestPath: entry.RequestPath,
		Method:      entry.Method,
		Details:     entry.Details,
	}

	// Append and verify both hash through this path, so a marshal failure
	// (only possible for an unserializable Details value) stays consistent
	// between the two.
	payload, _ := json.Marshal(envelope)

	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
