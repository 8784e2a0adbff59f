package common

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
	NA       = "N/A"
)

var (
	snowflakeOnce sync.Once
	snowflakeNode *snowflake.Node
)

// SetNodeID selects the snowflake node used by UUIDint64. It must be called
// before the first id is generated; later calls are ignored.
func SetNodeID(id int64) {
	snowflakeOnce.Do(func() {
		node, err := snowflake.NewNode(id)
		if err != nil {
			panic(err)
		}
		snowflakeNode = node
	})
}

// UUIDint64 returns a time ordered unique int64 id.
func UUIDint64() int64 {
	SetNodeID(1)
	return snowflakeNode.Generate().Int64()
}

func IfEmptyStr(src string, defval string) string {
	if strings.TrimSpace(src) == "" {
		return defval
	}
	return src
}

// StrPtr returns nil for blank strings.
func StrPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
