package cache

import (
	"strconv"
	"strings"
)

// populatedField marks a hash as populated even when it carries no metrics
const populatedField = "_populated"

const defaultPrefix = "entitymetrics"

type keyspace struct {
	prefix     string
	entityType string
}

func (k keyspace) bundle(id int64) string {
	return k.prefix + ":" + k.entityType + ":" + strconv.FormatInt(id, 10)
}

func (k keyspace) lock(id int64) string {
	return k.prefix + ":lock:" + k.entityType + ":" + strconv.FormatInt(id, 10)
}

func (k keyspace) pattern() string { return k.prefix + ":" + k.entityType + ":*" }

// flightKey names an in-process batch for singleflight
func (k keyspace) flightKey(ids []int64) string {
	var b strings.Builder
	b.WriteString(k.entityType)
	for _, id := range ids {
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
