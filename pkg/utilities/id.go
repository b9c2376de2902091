package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
// Users and stations are keyed by KSUIDs.
func NewKSUID() string {
	return ksuid.New().String()
}

// IsKSUID reports whether s has the shape of a KSUID string
// (27 base62 characters that decode to a valid value).
func IsKSUID(s string) bool {
	if len(s) != 27 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	id, err := ksuid.Parse(s)
	return err == nil && id.String() == s
}

var defaultNode = sync.OnceValue(func() *snowflake.Node {
	nodeID := int64(1)
	if env := os.Getenv("SNOWFLAKE_NODE"); env != "" {
		if n, err := strconv.ParseInt(env, 10, 64); err == nil {
			nodeID = n
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil
	}
	return node
})

// NewSnowflakeID generates a snowflake ID string using a node ID from
// the environment variable SNOWFLAKE_NODE (default 1). The node is created
// once per process so the sequence counter is shared across calls.
func NewSnowflakeID() string {
	if node := defaultNode(); node != nil {
		return node.Generate().String()
	}
	return NewKSUID()
}
